package persist

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testAccessKey = "minioadmin"
	testSecretKey = "minioadmin"
)

func TestS3Store(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping S3 store test in short mode")
	}

	endpoint := os.Getenv("S3_MINIO_ENDPOINT")
	if endpoint == "" {
		ctx := context.Background()

		req := testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     testAccessKey,
				"MINIO_ROOT_PASSWORD": testSecretKey,
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
		}

		minioContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			t.Skipf("Docker not available for MinIO container: %v", err)
		}

		defer func() {
			if err = minioContainer.Terminate(ctx); err != nil {
				t.Logf("Warning: Failed to terminate MinIO container: %v", err)
			}
		}()

		mappedPort, err := minioContainer.MappedPort(ctx, "9000")
		require.NoError(t, err, "Failed to get mapped port")

		endpoint = fmt.Sprintf("localhost:%s", mappedPort.Port())
	}
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")

	store, err := NewS3Store(S3Config{
		Endpoint:        endpoint,
		AccessKeyID:     testAccessKey,
		SecretAccessKey: testSecretKey,
		UseSSL:          false,
		Bucket:          "vault-test",
		KeyPrefix:       "test-vault",
	})
	require.NoError(t, err, "Failed to create S3 store")
	defer store.Close()

	testEnvelopeStoreImplementation(t, store)
}
