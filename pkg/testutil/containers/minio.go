//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/testcontainers/testcontainers-go"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
)

// MinioContainer wraps a testcontainers MinIO instance.
type MinioContainer struct {
	Container testcontainers.Container
	Endpoint  string
	AccessKey string
	SecretKey string
	Client    *minio.Client
}

// NewMinioContainer starts a new MinIO container.
func NewMinioContainer(t *testing.T) *MinioContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcminio.Run(ctx, "minio/minio:RELEASE.2024-01-16T16-07-38Z",
		tcminio.WithUsername("ranchdesk"),
		tcminio.WithPassword("ranchdesk-secret"),
	)
	if err != nil {
		t.Fatalf("failed to start minio container: %v", err)
	}

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get minio endpoint: %v", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(container.Username, container.Password, ""),
		Secure: false,
	})
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to create minio client: %v", err)
	}

	return &MinioContainer{
		Container: container,
		Endpoint:  endpoint,
		AccessKey: container.Username,
		SecretKey: container.Password,
		Client:    client,
	}
}
