package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/remiges-tech/phonecomplete"
	"github.com/remiges-tech/phonecomplete/sources"
)

var (
	sharedContainer testcontainers.Container
	sharedSource    *Source
	sharedConfig    Config
)

// TestMain sets up a shared Redis container for all tests
func TestMain(m *testing.M) {
	// Setup
	ctx := context.Background()
	container, source, err := setupSharedContainer(ctx)
	if err != nil {
		log.Fatalf("Failed to setup test container: %v", err)
	}

	sharedContainer = container
	sharedSource = source

	// Run tests
	code := m.Run()

	// Cleanup
	if err := sharedSource.Close(); err != nil {
		log.Printf("Failed to close source: %v", err)
	}
	if sharedContainer != nil {
		if err := sharedContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}

	os.Exit(code)
}

func setupSharedContainer(ctx context.Context) (testcontainers.Container, *Source, error) {
	req := testcontainers.ContainerRequest{
		Image:        "redis:8-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, nil, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, nil, err
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		return nil, nil, err
	}

	sharedConfig = Config{
		Addr:      fmt.Sprintf("%s:%s", host, port.Port()),
		Password:  "",
		DB:        0,
		ScanCount: 3,
	}

	source, err := New(sharedConfig)
	if err != nil {
		return nil, nil, err
	}

	return container, source, nil
}

func getTestSource(t *testing.T) *Source {
	if sharedSource == nil {
		t.Fatal("Redis source not initialized")
	}

	// Clear the database before each test
	ctx := context.Background()
	if err := sharedSource.client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush database: %v", err)
	}

	return sharedSource
}

func putOrders(t *testing.T, source *Source, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		err := source.Put(ctx, fmt.Sprintf("%d", i), map[string]string{
			"daytime_phone": fmt.Sprintf("555-123-%04d", i),
			"name":          fmt.Sprintf("Customer %d", i),
		})
		if err != nil {
			t.Fatalf("Failed to store test data: %v", err)
		}
	}
}

func TestRedisSource_Count(t *testing.T) {
	source := getTestSource(t)
	ctx := context.Background()

	count, err := source.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() on empty database = %d, want 0", count)
	}

	putOrders(t, source, 10)
	// keys outside the prefix are not records
	if err := source.client.Set(ctx, "session:1", "x", 0).Err(); err != nil {
		t.Fatalf("Failed to set key: %v", err)
	}

	count, err = source.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 10 {
		t.Errorf("Count() = %d, want 10", count)
	}
}

func TestRedisSource_Scan(t *testing.T) {
	source := getTestSource(t)
	ctx := context.Background()
	putOrders(t, source, 10)
	if err := source.Put(ctx, "no-phone", map[string]string{"name": "Walk-in"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	tests := []struct {
		name      string
		batchSize int
	}{
		{"source default batch", 0},
		{"single record batches", 1},
		{"large batch", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make(map[string]map[string]string)
			err := source.Scan(ctx, sources.ScanOptions{
				Fields:    []string{"daytime_phone", "evening_phone"},
				BatchSize: tt.batchSize,
			}, func(rec sources.Record) error {
				got[rec.ID] = rec.Fields
				return nil
			})
			if err != nil {
				t.Fatalf("Scan() error = %v", err)
			}

			// SCAN may return a key twice; records are keyed by ID here
			if len(got) != 11 {
				t.Errorf("Scan() visited %d records, want 11", len(got))
			}
			if phone := got["7"]["daytime_phone"]; phone != "555-123-0007" {
				t.Errorf("record 7 daytime_phone = %q, want %q", phone, "555-123-0007")
			}
			if _, ok := got["7"]["name"]; ok {
				t.Error("Scan() returned a field that was not requested")
			}
			if _, ok := got["7"]["evening_phone"]; ok {
				t.Error("Scan() returned a missing field")
			}
			if fields, ok := got["no-phone"]; !ok || len(fields) != 0 {
				t.Errorf("record without phones = %v, %v; want present with no fields", fields, ok)
			}
		})
	}
}

func TestRedisSource_ScanSkipsOtherTypes(t *testing.T) {
	source := getTestSource(t)
	ctx := context.Background()
	putOrders(t, source, 4)

	// non-hash keys sharing the prefix
	if err := source.client.Set(ctx, source.key("counter"), "42", 0).Err(); err != nil {
		t.Fatalf("Failed to set key: %v", err)
	}
	if err := source.client.RPush(ctx, source.key("queue"), "1", "2").Err(); err != nil {
		t.Fatalf("Failed to push list: %v", err)
	}

	var ids []string
	err := source.Scan(ctx, sources.ScanOptions{Fields: []string{"daytime_phone"}, BatchSize: 1000}, func(rec sources.Record) error {
		ids = append(ids, rec.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	sort.Strings(ids)
	if fmt.Sprint(ids) != "[0 1 2 3]" {
		t.Errorf("Scan() records = %v, want [0 1 2 3]", ids)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	options := phonecomplete.DefaultOptions()
	options.Logger = logger
	pc := phonecomplete.NewWithSource("redis", source, options)

	if err := pc.Initialize(ctx).Wait(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	results, err := pc.Search(ctx, "5551230002")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) == 0 || results[0].RecordID != "2" {
		t.Errorf("Search() = %+v, want record 2 first", results)
	}
}

func TestRedisSource_ScanStop(t *testing.T) {
	source := getTestSource(t)
	ctx := context.Background()
	putOrders(t, source, 10)

	visited := 0
	err := source.Scan(ctx, sources.ScanOptions{Fields: []string{"daytime_phone"}}, func(rec sources.Record) error {
		visited++
		if visited == 2 {
			return sources.ErrStopScan
		}
		return nil
	})
	if err != nil {
		t.Errorf("Scan() stopped early error = %v, want nil", err)
	}
	if visited != 2 {
		t.Errorf("Scan() visited %d records after stop, want 2", visited)
	}

	boom := errors.New("boom")
	err = source.Scan(ctx, sources.ScanOptions{Fields: []string{"daytime_phone"}}, func(rec sources.Record) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Scan() error = %v, want %v", err, boom)
	}
}

func TestRedisSource_Delete(t *testing.T) {
	source := getTestSource(t)
	ctx := context.Background()
	putOrders(t, source, 5)

	if err := source.Delete(ctx, "3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	var ids []string
	err := source.Scan(ctx, sources.ScanOptions{Fields: []string{"daytime_phone"}}, func(rec sources.Record) error {
		ids = append(ids, rec.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	sort.Strings(ids)
	if fmt.Sprint(ids) != "[0 1 2 4]" {
		t.Errorf("records after Delete() = %v, want [0 1 2 4]", ids)
	}

	if err := source.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	count, err := source.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() after DeleteAll() = %d, want 0", count)
	}
}

func TestRedisSource_PhoneComplete(t *testing.T) {
	source := getTestSource(t)
	ctx := context.Background()
	orders := map[string]map[string]string{
		"A": {"daytime_phone": "555-123-4567"},
		"B": {"evening_phone": "(555) 123-4568"},
	}
	for id, fields := range orders {
		if err := source.Put(ctx, id, fields); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	options := phonecomplete.DefaultOptions()
	options.Logger = logger

	pc, err := phonecomplete.New("redis", phonecomplete.NewConfigWithOptions(sharedConfig, options))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer pc.Close()

	if err := pc.Initialize(ctx).Wait(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	results, err := pc.Search(ctx, "5551234567")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 || results[0].RecordID != "A" || results[1].RecordID != "B" {
		t.Errorf("Search() = %+v, want A then B", results)
	}
}

func TestNewSource_InvalidConfig(t *testing.T) {
	if _, err := NewSource("localhost:6379"); err == nil {
		t.Error("NewSource() with wrong config type error = nil, want error")
	}
}
