package jobdao

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/savaki/ddb/v2"
	"github.com/savaki/gox/slicex"
)

const latest = "latest"

// TableName derives the jobs table name from the environment
func TableName(env string) string {
	return fmt.Sprintf("%s-phdb-jobs", env)
}

// PK represents a DynamoDB partition key in format {item_code}/{env}
// Example: AB1234/prod
type PK string

// NewPK creates a new partition key from item code and env
func NewPK(itemCode, env string) PK {
	return PK(fmt.Sprintf("%s/%s", itemCode, env))
}

// ParsePK parses a partition key into its item code and env components
func ParsePK(pk PK) (itemCode, env string, err error) {
	s := string(pk)
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid PK format: %s, expected {item_code}/{env}", s)
	}
	return parts[0], parts[1], nil
}

// String returns the string representation of the partition key
func (pk PK) String() string {
	return string(pk)
}

// ID represents a job ID in format {item_code}/{env}:{ksuid}
// Example: AB1234/prod:2HFj3kLmNoPqRsTuVwXy
type ID string

func (id ID) String() string {
	return string(id)
}

// ParseID parses a job ID into its partition key (pk) and sort key (sk) components
func ParseID(id ID) (pk PK, sk string, err error) {
	s := string(id)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid job ID format: %s, expected {item_code}/{env}:{ksuid}", s)
	}
	return PK(parts[0]), parts[1], nil
}

// NewID constructs an ID from partition key and sort key
func NewID(pk PK, sk string) ID {
	return ID(fmt.Sprintf("%s:%s", pk, sk))
}

// JobStatus represents the current status of a bundle job
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusSuccess    JobStatus = "SUCCESS"
	JobStatusFailed     JobStatus = "FAILED"
)

// Record represents a bundle job record in DynamoDB
type Record struct {
	PK            PK        `ddb:"hash" dynamodbav:"pk"`  // {item_code}/{env} - DynamoDB partition key
	SK            string    `ddb:"range" dynamodbav:"sk"` // KSUID - DynamoDB sort key
	ID            ID        `dynamodbav:"id,omitempty"`   // ID is only used for latest entries
	ItemCode      string    `dynamodbav:"item_code,omitempty"`
	Env           string    `dynamodbav:"env,omitempty"`         // Environment name (dev, staging, prod)
	ImageCount    int       `dynamodbav:"image_count,omitempty"` // Number of images requested
	HasSizeData   bool      `dynamodbav:"has_size_data,omitempty"`
	ImagesBundled *int      `dynamodbav:"images_bundled,omitempty"` // Images actually found and zipped
	BundleKey     string    `dynamodbav:"bundle_key,omitempty"`     // Object key of the uploaded zip
	ZipSize       *int64    `dynamodbav:"zip_size,omitempty"`       // Size of the uploaded zip in bytes
	Status        JobStatus `dynamodbav:"status,omitempty"`
	ErrorMsg      *string   `dynamodbav:"error_msg,omitempty"`
	CreatedAt     int64     `dynamodbav:"created_at,omitempty"`  // Unix epoch timestamp of creation
	FinishedAt    *int64    `dynamodbav:"finished_at,omitempty"` // Unix epoch timestamp of completion
	UpdatedAt     int64     `dynamodbav:"updated_at,omitempty"`  // Unix epoch timestamp of last update
}

// GetID returns the full job ID in format: {item_code}/{env}:{ksuid}
func (r *Record) GetID() ID {
	if r.ID != "" {
		return r.ID
	}
	return NewID(r.PK, r.SK)
}

// CreateInput contains the fields needed to create a new job record
type CreateInput struct {
	ItemCode    string // Catalog item code
	Env         string // Environment (dev, staging, prod)
	SK          string // KSUID sort key
	ImageCount  int    // Number of images requested
	HasSizeData bool   // Whether a size payload accompanied the request
}

// UpdateInput contains the fields that can be updated on a job record
type UpdateInput struct {
	PK            PK         // Partition key (item_code/env)
	SK            string     // Sort key (KSUID)
	Status        *JobStatus // New status
	ErrorMsg      *string    // Error message (optional)
	ImagesBundled *int       // Images actually zipped (optional)
	BundleKey     *string    // Uploaded object key (optional)
	ZipSize       *int64     // Uploaded zip size in bytes (optional)
}

// DAO provides data access operations for bundle job records
type DAO struct {
	db        *ddb.DDB
	table     *ddb.Table
	tableName string
}

// New creates a new DAO instance
func New(client *dynamodb.Client, tableName string) *DAO {
	db := ddb.New(client)
	table := db.MustTable(tableName, &Record{})
	return &DAO{
		db:        db,
		table:     table,
		tableName: tableName,
	}
}

// Table returns the name of the DynamoDB table the DAO operates on
func (d *DAO) Table() string {
	return d.tableName
}

// Create creates a new job record with initial status PENDING
func (d *DAO) Create(ctx context.Context, input CreateInput) (Record, error) {
	pk := NewPK(input.ItemCode, input.Env)
	now := time.Now().Unix()

	record := Record{
		PK:          pk,
		SK:          input.SK,
		ItemCode:    input.ItemCode,
		Env:         input.Env,
		ImageCount:  input.ImageCount,
		HasSizeData: input.HasSizeData,
		Status:      JobStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := d.table.Put(&record).RunWithContext(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("failed to create job record: %w", err)
	}

	return record, nil
}

// Find retrieves a job record by ID
// Returns an error if not found or if there's a database error
func (d *DAO) Find(ctx context.Context, id ID) (Record, error) {
	pk, sk, err := ParseID(id)
	if err != nil {
		return Record{}, err
	}

	var record Record

	err = d.table.Get(pk.String()).
		Range(sk).
		ConsistentRead(true).
		ScanWithContext(ctx, &record)
	if err != nil {
		// Check if it's a "not found" error
		errStr := err.Error()
		if strings.Contains(errStr, "item not found") || strings.Contains(errStr, "ItemNotFound") {
			return Record{}, fmt.Errorf("job record not found: %s", id)
		}
		return Record{}, fmt.Errorf("failed to find job record: %w", err)
	}

	// If all fields are empty, item doesn't exist
	if record.PK == "" && record.SK == "" {
		return Record{}, fmt.Errorf("job record not found: %s", id)
	}

	return record, nil
}

// Delete removes a job record by ID
func (d *DAO) Delete(ctx context.Context, id ID) error {
	pk, sk, err := ParseID(id)
	if err != nil {
		return err
	}

	err = d.table.Delete(pk).
		Range(sk).
		RunWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete job record: %w", err)
	}

	return nil
}

// UpdateStatus updates the status of a job record and creates/updates a "latest" magic record
// The latest record has pk=latest/{env} and sk={original pk} to enable efficient queries for
// the most recent bundle per item
func (d *DAO) UpdateStatus(ctx context.Context, input UpdateInput) error {
	if input.Status == nil {
		return fmt.Errorf("status is required")
	}

	now := time.Now().Unix()

	// Build the update operation with chained Set calls
	update := d.table.Update(input.PK).
		Range(input.SK).
		Set("#Status = ?", string(*input.Status)).
		Set("#UpdatedAt = ?", now)

	// Set finishedAt for terminal states (SUCCESS or FAILED)
	if *input.Status == JobStatusSuccess || *input.Status == JobStatusFailed {
		update = update.Set("#FinishedAt = ?", now)
	}

	if input.ErrorMsg != nil {
		update = update.Set("#ErrorMsg = ?", *input.ErrorMsg)
	}
	if input.ImagesBundled != nil {
		update = update.Set("#ImagesBundled = ?", *input.ImagesBundled)
	}
	if input.BundleKey != nil {
		update = update.Set("#BundleKey = ?", *input.BundleKey)
	}
	if input.ZipSize != nil {
		update = update.Set("#ZipSize = ?", *input.ZipSize)
	}

	// Create/update the "latest" magic record
	// Parse env from PK (format: {item_code}/{env})
	itemCode, env, err := ParsePK(input.PK)
	if err != nil {
		return fmt.Errorf("failed to parse PK: %w", err)
	}

	latestRecord := &Record{
		PK:        NewPK(latest, env),
		SK:        input.PK.String(), // SK in latest record = PK from original (item_code/env identifier)
		ID:        NewID(input.PK, input.SK),
		ItemCode:  itemCode,
		Env:       env,
		Status:    *input.Status,
		UpdatedAt: now,
	}

	// Write both the update and the latest record in a transaction
	put := d.table.Put(latestRecord)

	if _, err := d.db.TransactWriteItemsWithContext(ctx, update, put); err != nil {
		return err
	}

	return nil
}

// Query returns all jobs for a given item_code/env partition key
func (d *DAO) Query(ctx context.Context, pk PK) ([]Record, error) {
	var records []Record

	err := d.table.Query("#PK = ?", pk.String()).
		FindAllWithContext(ctx, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}

	return records, nil
}

// QueryByItemEnv returns all jobs for a given item code and environment
func (d *DAO) QueryByItemEnv(ctx context.Context, itemCode, env string) ([]Record, error) {
	pk := NewPK(itemCode, env)
	return d.Query(ctx, pk)
}

// QueryLatestJobs returns the latest job for each item in the given environment
// It queries the "latest" magic records where pk=latest/{env} and sk={item_code}/{env}
func (d *DAO) QueryLatestJobs(ctx context.Context, env string) ([]Record, error) {
	pk := NewPK(latest, env)
	var records []Record

	err := d.table.Query("#PK = ?", pk).
		FindAllWithContext(ctx, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest jobs: %w", err)
	}

	// Sort by UpdatedAt descending (most recent first)
	// The records are already sorted by SK (item_code/env), but we want to sort by time
	for i := 0; i < len(records)-1; i++ {
		for j := i + 1; j < len(records); j++ {
			if records[j].UpdatedAt > records[i].UpdatedAt {
				records[i], records[j] = records[j], records[i]
			}
		}
	}

	ids := slicex.Map(records, GetID)

	// Load full job records for each ID
	jobs := make([]Record, 0, len(ids))
	for _, id := range ids {
		record, err := d.Find(ctx, id)
		if err != nil {
			// Skip records that are not found (may have been deleted)
			continue
		}
		jobs = append(jobs, record)
	}

	return jobs, nil
}

// GetID is a standalone accessor for use with slicex.Map
func GetID(r Record) ID {
	return r.GetID()
}
