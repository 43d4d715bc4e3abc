package minio_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math"
	"math/big"
	"sync"
	"testing"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	minioc "github.com/testcontainers/testcontainers-go/modules/minio"

	"github.com/sagarc03/bucketgate/minio"
)

const minioImage = "minio/minio:RELEASE.2024-01-16T16-07-38Z"

type testServer struct {
	endpoint  string
	accessKey string
	secretKey string
	client    *miniogo.Client
}

var (
	testSrv  *testServer
	testOnce sync.Once
)

// getSharedServer starts one MinIO container for the package.
// Skipped under -short since it needs Docker.
func getSharedServer(t *testing.T) *testServer {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping minio container test in short mode")
	}

	testOnce.Do(func() {
		ctx := context.Background()

		container, err := minioc.Run(ctx, minioImage)
		if err != nil {
			t.Fatalf("failed to start minio container: %v", err)
		}

		terminate := func() {
			if err := testcontainers.TerminateContainer(container); err != nil {
				log.Printf("failed to terminate container: %s", err)
			}
		}

		endpoint, err := container.ConnectionString(ctx)
		if err != nil {
			terminate()
			t.Fatalf("failed to get minio endpoint: %v", err)
		}

		client, err := miniogo.New(endpoint, &miniogo.Options{
			Creds: credentials.NewStaticV4(container.Username, container.Password, ""),
		})
		if err != nil {
			terminate()
			t.Fatalf("failed to create minio client: %v", err)
		}

		testSrv = &testServer{
			endpoint:  endpoint,
			accessKey: container.Username,
			secretKey: container.Password,
			client:    client,
		}
	})

	if testSrv == nil {
		t.Fatal("minio container failed to start in an earlier test")
	}

	return testSrv
}

// getRandomBucket returns a bucket name unique to the calling test.
func getRandomBucket(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random bucket name")
	return fmt.Sprintf("test-%x", n.Int64())
}

// setupBucket creates a fresh bucket and returns a Bucket over it together
// with a raw client for inspecting what was stored.
func setupBucket(t *testing.T) (*minio.Bucket, *miniogo.Client, string) {
	t.Helper()

	srv := getSharedServer(t)
	name := getRandomBucket(t)

	require.NoError(t, srv.client.MakeBucket(context.Background(), name, miniogo.MakeBucketOptions{}))

	b, err := minio.New(minio.Config{
		Endpoint:  srv.endpoint,
		Bucket:    name,
		Region:    "us-east-1",
		AccessKey: srv.accessKey,
		SecretKey: srv.secretKey,
	})
	require.NoError(t, err)

	return b, srv.client, name
}

// storedKeys lists bucket through the raw client.
func storedKeys(t *testing.T, client *miniogo.Client, bucket string) []string {
	t.Helper()

	var keys []string
	for obj := range client.ListObjects(context.Background(), bucket, miniogo.ListObjectsOptions{Recursive: true}) {
		require.NoError(t, obj.Err)
		keys = append(keys, obj.Key)
	}
	return keys
}
