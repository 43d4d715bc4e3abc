package s3_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sagarc03/bucketgate/s3"
)

const (
	localstackImage = "localstack/localstack:4.0"
	testRegion      = "us-east-1"
)

var (
	testEndpoint string
	testClient   *awss3.Client
	testOnce     sync.Once
)

// getSharedEndpoint starts one localstack container for the package and
// returns its S3 endpoint. Skipped under -short since it needs Docker.
func getSharedEndpoint(t *testing.T) (string, *awss3.Client) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping localstack container test in short mode")
	}

	testOnce.Do(func() {
		ctx := context.Background()

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        localstackImage,
				ExposedPorts: []string{"4566/tcp"},
				Env:          map[string]string{"SERVICES": "s3"},
				WaitingFor:   wait.ForLog("Ready."),
			},
			Started: true,
		})
		if err != nil {
			t.Fatalf("failed to start localstack container: %v", err)
		}

		terminate := func() {
			if err := testcontainers.TerminateContainer(container); err != nil {
				log.Printf("failed to terminate container: %s", err)
			}
		}

		host, err := container.Host(ctx)
		if err != nil {
			terminate()
			t.Fatalf("failed to get container host: %v", err)
		}
		port, err := container.MappedPort(ctx, "4566")
		if err != nil {
			terminate()
			t.Fatalf("failed to get container port: %v", err)
		}

		testEndpoint = fmt.Sprintf("http://%s:%s", host, port.Port())

		cfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(testRegion),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
		)
		if err != nil {
			terminate()
			t.Fatalf("failed to load aws config: %v", err)
		}

		testClient = awss3.NewFromConfig(cfg, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(testEndpoint)
			o.UsePathStyle = true
		})
	})

	if testClient == nil {
		t.Fatal("localstack container failed to start in an earlier test")
	}

	return testEndpoint, testClient
}

// getRandomBucket returns a bucket name unique to the calling test.
func getRandomBucket(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random bucket name")
	return fmt.Sprintf("test-%x", n.Int64())
}

// setupBucket creates a fresh bucket in localstack and returns a Bucket over
// it together with a raw client for inspecting what was stored.
func setupBucket(t *testing.T) (*s3.Bucket, *awss3.Client, string) {
	t.Helper()

	endpoint, client := getSharedEndpoint(t)
	ctx := context.Background()
	name := getRandomBucket(t)

	_, err := client.CreateBucket(ctx, &awss3.CreateBucketInput{Bucket: aws.String(name)})
	require.NoError(t, err)

	b, err := s3.New(ctx, s3.Config{
		Bucket:       name,
		Region:       testRegion,
		Endpoint:     endpoint,
		AccessKey:    "test",
		SecretKey:    "test",
		UsePathStyle: true,
	})
	require.NoError(t, err)

	return b, client, name
}

// storedKeys lists bucket through the raw client.
func storedKeys(t *testing.T, client *awss3.Client, bucket string) []string {
	t.Helper()

	out, err := client.ListObjectsV2(context.Background(), &awss3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	require.NoError(t, err)

	keys := make([]string, 0, len(out.Contents))
	for _, o := range out.Contents {
		keys = append(keys, aws.ToString(o.Key))
	}
	return keys
}
