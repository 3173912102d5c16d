package di

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/phdb/image-bundler/internal/dao/jobdao"
	"github.com/phdb/image-bundler/internal/services"
)

// ProvideJobDAO builds the jobs DAO. The table name derives from the
// environment unless the config overrides it.
func ProvideJobDAO(env string, client *dynamodb.Client, config *services.Config) *jobdao.DAO {
	tableName := config.JobsTable
	if tableName == "" {
		tableName = jobdao.TableName(env)
	}
	return jobdao.New(client, tableName)
}
