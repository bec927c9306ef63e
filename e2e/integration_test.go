//go:build e2e

// Package e2e contains end-to-end tests against a real DynamoDB table.
// Run with: go test -tags=e2e -v ./e2e/...
//
// Point ADMIX_AWS_ENDPOINT at DynamoDB Local to avoid touching a real
// account; ADMIX_AWS_REGION is required either way.
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/admix/audit"
	"github.com/jacentio/admix/config"
	"github.com/jacentio/admix/internal/keys"
	"github.com/jacentio/admix/roles"
	"github.com/jacentio/admix/store"
)

const tablePrefix = "admix-e2e-test"

var (
	tableName string
	ddbClient *dynamodb.Client
	backend   *store.Store
)

func TestMain(m *testing.M) {
	tableName = fmt.Sprintf("%s-%s", tablePrefix, uuid.New().String()[:8])
	fmt.Printf("Test table: %s\n", tableName)

	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	awsCfg, err := config.NewAWSConfig(ctx, cfg)
	if err != nil {
		fmt.Printf("Failed to load AWS config: %v\n", err)
		os.Exit(1)
	}
	ddbClient = config.NewDynamoClient(awsCfg, cfg)

	if err := createTable(ctx); err != nil {
		fmt.Printf("Failed to create table: %v\n", err)
		os.Exit(1)
	}

	backend = store.New(ddbClient, store.Config{TableName: tableName})

	code := m.Run()

	if _, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	}); err != nil {
		fmt.Printf("Failed to delete table: %v\n", err)
	}

	os.Exit(code)
}

func createTable(ctx context.Context) error {
	_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", tableName, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(ddbClient)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	}, 2*time.Minute)
}

func TestRecordRoundTrip(t *testing.T) {
	ctx := context.Background()

	rec := store.Record{
		PartitionKey: "E2E",
		SortKey:      uuid.NewString(),
		Attributes: map[string]any{
			"name":   "round-trip",
			"active": true,
			"count":  3,
		},
		CreatedOn: time.Now().UTC().Format(time.RFC3339),
		UpdatedOn: time.Now().UTC().Format(time.RFC3339),
	}
	if err := backend.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := backend.GetByKey(ctx, rec.PartitionKey, rec.SortKey)
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if got.Attributes["name"] != "round-trip" {
		t.Errorf("expected name round-trip, got %v", got.Attributes["name"])
	}
	if got.Attributes["active"] != true {
		t.Errorf("expected active true, got %v", got.Attributes["active"])
	}
	// Numbers come back as float64.
	if got.Attributes["count"] != float64(3) {
		t.Errorf("expected count 3, got %v (%T)", got.Attributes["count"], got.Attributes["count"])
	}
}

func TestQueryByPartition_FilterAndOrder(t *testing.T) {
	ctx := context.Background()
	partition := "E2E-" + uuid.NewString()[:8]

	for i, sk := range []string{"a", "b", "c"} {
		err := backend.Put(ctx, store.Record{
			PartitionKey: partition,
			SortKey:      sk,
			Attributes:   map[string]any{"even": i%2 == 0},
		})
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	forward, err := backend.QueryByPartition(ctx, partition, store.Query{})
	if err != nil {
		t.Fatalf("QueryByPartition: %v", err)
	}
	if len(forward) != 3 || forward[0].SortKey != "a" || forward[2].SortKey != "c" {
		t.Fatalf("unexpected forward order %+v", forward)
	}

	reverse, err := backend.QueryByPartition(ctx, partition, store.Query{Reverse: true})
	if err != nil {
		t.Fatalf("QueryByPartition: %v", err)
	}
	if reverse[0].SortKey != "c" {
		t.Errorf("expected reverse order, got %+v", reverse)
	}

	even, err := backend.QueryByPartition(ctx, partition, store.Query{
		Filter: &store.Condition{Field: "even", Value: true},
	})
	if err != nil {
		t.Fatalf("QueryByPartition: %v", err)
	}
	if len(even) != 2 {
		t.Errorf("expected 2 filtered records, got %d", len(even))
	}
}

func TestRoleLifecycle(t *testing.T) {
	ctx := context.Background()
	recorder := audit.NewRecorder(backend, nil)
	svc := roles.New(backend, recorder, nil)

	added, err := svc.AddRole(ctx, "E2E-Editor", "end to end role")
	if err != nil {
		t.Fatalf("AddRole: %v", err)
	}
	if !added.Status {
		t.Fatalf("AddRole rejected: %s", added.Message)
	}
	role := added.Data.(roles.Role)

	dup, err := svc.AddRole(ctx, "e2e-editor", "duplicate")
	if err != nil {
		t.Fatalf("AddRole: %v", err)
	}
	if dup.Status {
		t.Error("expected case-insensitive duplicate to be rejected")
	}

	if _, err := svc.DeleteRole(ctx, role.ID); err != nil {
		t.Fatalf("DeleteRole: %v", err)
	}

	entries, err := recorder.Entries(ctx, keys.Role)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) < 2 {
		t.Errorf("expected add and delete audit entries, got %d", len(entries))
	}
}

func TestGetByKey_NotFound(t *testing.T) {
	_, err := backend.GetByKey(context.Background(), "E2E", "missing-"+uuid.NewString())
	if err == nil {
		t.Fatal("expected not-found error")
	}
}
