package di

import (
	"testing"

	"go.uber.org/dig"
)

// Test types for dependency injection
type SourceStore struct {
	Bucket string
}

type Renderer struct {
	Endpoint string
}

type Bundler struct {
	Store    *SourceStore
	Renderer *Renderer
	Env      string
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		opts    []Option
		wantErr bool
	}{
		{
			name:    "creates container with no providers",
			env:     "dev",
			opts:    nil,
			wantErr: false,
		},
		{
			name: "creates container with single provider",
			env:  "staging",
			opts: []Option{
				WithProviders(func() *SourceStore {
					return &SourceStore{Bucket: "test-bucket"}
				}),
			},
			wantErr: false,
		},
		{
			name: "creates container with multiple providers",
			env:  "prod",
			opts: []Option{
				WithProviders(
					func() *SourceStore {
						return &SourceStore{Bucket: "prod-bucket"}
					},
					func() *Renderer {
						return &Renderer{Endpoint: "https://render.example.com"}
					},
				),
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			container, err := New(tt.env, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if container == nil && !tt.wantErr {
				t.Error("New() returned nil container without error")
			}
		})
	}
}

func TestNew_InvalidProvider(t *testing.T) {
	// Attempting to provide the same type twice should fail
	_, err := New("dev",
		WithProviders(
			func() *SourceStore {
				return &SourceStore{Bucket: "bucket1"}
			},
			func() *SourceStore {
				return &SourceStore{Bucket: "bucket2"}
			},
		),
	)

	if err == nil {
		t.Error("New() should return error when providing duplicate types")
	}
}

func TestNew_ProvidesEnvironment(t *testing.T) {
	expectedEnv := "test-env"
	container, err := New(expectedEnv)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	var actualEnv string
	err = container.Invoke(func(env string) {
		actualEnv = env
	})
	if err != nil {
		t.Fatalf("Invoke() unexpected error: %v", err)
	}

	if actualEnv != expectedEnv {
		t.Errorf("Environment = %v, want %v", actualEnv, expectedEnv)
	}
}

func TestMustGet(t *testing.T) {
	t.Run("successfully retrieves dependency", func(t *testing.T) {
		container, err := New("dev",
			WithProviders(func() *SourceStore {
				return &SourceStore{Bucket: "test-bucket"}
			}),
		)
		if err != nil {
			t.Fatalf("New() unexpected error: %v", err)
		}

		store := MustGet[*SourceStore](container)
		if store == nil {
			t.Error("MustGet() returned nil")
		}
		if store.Bucket != "test-bucket" {
			t.Errorf("SourceStore.Bucket = %v, want %v", store.Bucket, "test-bucket")
		}
	})

	t.Run("panics when dependency not found", func(t *testing.T) {
		container, err := New("dev")
		if err != nil {
			t.Fatalf("New() unexpected error: %v", err)
		}

		defer func() {
			if r := recover(); r == nil {
				t.Error("MustGet() did not panic")
			}
		}()

		_ = MustGet[*SourceStore](container)
	})
}

func TestWithProviders(t *testing.T) {
	t.Run("chains multiple WithProviders calls", func(t *testing.T) {
		container, err := New("dev",
			WithProviders(func() *SourceStore {
				return &SourceStore{Bucket: "test-bucket"}
			}),
			WithProviders(func() *Renderer {
				return &Renderer{Endpoint: "https://render.example.com"}
			}),
		)
		if err != nil {
			t.Fatalf("New() unexpected error: %v", err)
		}

		var store *SourceStore
		var renderer *Renderer
		err = container.Invoke(func(s *SourceStore, r *Renderer) {
			store = s
			renderer = r
		})
		if err != nil {
			t.Fatalf("Invoke() unexpected error: %v", err)
		}
		if store == nil || renderer == nil {
			t.Error("Expected both dependencies to be available")
		}
	})
}

func TestDependencyInjection(t *testing.T) {
	t.Run("resolves dependencies automatically", func(t *testing.T) {
		container, err := New("production",
			WithProviders(
				func() *SourceStore {
					return &SourceStore{Bucket: "prod-bucket"}
				},
				func() *Renderer {
					return &Renderer{Endpoint: "https://render.example.com"}
				},
				func(store *SourceStore, renderer *Renderer, env string) *Bundler {
					return &Bundler{
						Store:    store,
						Renderer: renderer,
						Env:      env,
					}
				},
			),
		)
		if err != nil {
			t.Fatalf("New() unexpected error: %v", err)
		}

		bundler := MustGet[*Bundler](container)
		if bundler.Store.Bucket != "prod-bucket" {
			t.Errorf("Bundler.Store.Bucket = %v, want %v", bundler.Store.Bucket, "prod-bucket")
		}
		if bundler.Renderer.Endpoint != "https://render.example.com" {
			t.Errorf("Bundler.Renderer.Endpoint = %v, want %v", bundler.Renderer.Endpoint, "https://render.example.com")
		}
		if bundler.Env != "production" {
			t.Errorf("Bundler.Env = %v, want %v", bundler.Env, "production")
		}
	})
}

func TestContainer_Interface(t *testing.T) {
	t.Run("implements Container interface", func(t *testing.T) {
		var _ Container = (*dig.Container)(nil)
	})

	t.Run("can be used polymorphically", func(t *testing.T) {
		var container Container
		container, err := New("dev",
			WithProviders(func() *SourceStore {
				return &SourceStore{Bucket: "test"}
			}),
		)
		if err != nil {
			t.Fatalf("New() unexpected error: %v", err)
		}

		err = container.Invoke(func(store *SourceStore) {
			if store.Bucket != "test" {
				t.Errorf("SourceStore.Bucket = %v, want %v", store.Bucket, "test")
			}
		})
		if err != nil {
			t.Fatalf("Invoke() unexpected error: %v", err)
		}
	})
}
