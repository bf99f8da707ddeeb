package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-customfields/pkg/cache"
	"github.com/goliatone/go-customfields/pkg/fieldspec"
	"github.com/goliatone/go-customfields/pkg/registry"
	"github.com/goliatone/go-customfields/pkg/uischema"
)

func sampleSchema() registry.Schema {
	company := int64(7)
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	return registry.Schema{
		ID:         "01HSCHEMA",
		Name:       "Employee extras",
		EntityType: registry.EntityEmployee,
		Definition: fieldspec.MustParse([]byte(`{
			"type": "object",
			"properties": {
				"age": {"type": "integer", "minimum": 0, "maximum": 120},
				"nickname": {"type": "string", "maxLength": 20}
			},
			"required": ["age"]
		}`)),
		UIHints: uischema.Hints{
			"nickname": {Placeholder: "Nick", Widget: "text"},
		},
		CompanyID: &company,
		Version:   1,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func kvBackends(t *testing.T) map[string]cache.KV {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]cache.KV{
		"memory": cache.NewMemoryKV(),
		"redis":  cache.NewRedisKV(client),
	}
}

func TestSchemaCacheRoundTrip(t *testing.T) {
	for name, kv := range kvBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := cache.NewSchemaCache(kv)
			want := sampleSchema()

			_, found, err := c.Get(ctx, want.ID)
			require.NoError(t, err)
			require.False(t, found)

			require.NoError(t, c.Set(ctx, want))
			got, found, err := c.Get(ctx, want.ID)
			require.NoError(t, err)
			require.True(t, found)

			wantJSON, err := want.Definition.MarshalJSON()
			require.NoError(t, err)
			gotJSON, err := got.Definition.MarshalJSON()
			require.NoError(t, err)
			if diff := cmp.Diff(string(wantJSON), string(gotJSON)); diff != "" {
				t.Fatalf("definition mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.UIHints, got.UIHints); diff != "" {
				t.Fatalf("hints mismatch (-want +got):\n%s", diff)
			}
			require.Equal(t, want.Name, got.Name)
			require.Equal(t, *want.CompanyID, *got.CompanyID)
			require.True(t, want.CreatedAt.Equal(got.CreatedAt))

			require.NoError(t, c.Invalidate(ctx, want.ID))
			_, found, err = c.Get(ctx, want.ID)
			require.NoError(t, err)
			require.False(t, found)
		})
	}
}

func TestSchemaCacheReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()
	require.NoError(t, c.Set(ctx, sampleSchema()))

	first, _, err := c.Get(ctx, "01HSCHEMA")
	require.NoError(t, err)
	first.Name = "mutated"
	first.UIHints["nickname"] = uischema.Hint{Widget: "textarea"}

	second, _, err := c.Get(ctx, "01HSCHEMA")
	require.NoError(t, err)
	require.Equal(t, "Employee extras", second.Name)
	require.Equal(t, "text", second.UIHints["nickname"].Widget)
}

func TestMemoryKVExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kv := cache.NewMemoryKV().WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	now = now.Add(time.Minute)
	_, err = kv.Get(ctx, "k")
	require.ErrorIs(t, err, cache.ErrMiss)
	require.Equal(t, 0, kv.Len())
}

func TestRedisTTLAndCorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	c := cache.NewSchemaCache(cache.NewRedisKV(client), cache.WithTTL(30*time.Second), cache.WithKeyPrefix("test:"))
	require.NoError(t, c.Set(ctx, sampleSchema()))
	require.True(t, mr.Exists("test:01HSCHEMA"))
	require.Equal(t, 30*time.Second, mr.TTL("test:01HSCHEMA"))

	mr.FastForward(31 * time.Second)
	_, found, err := c.Get(ctx, "01HSCHEMA")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, mr.Set("test:broken", "{not json"))
	_, found, err = c.Get(ctx, "broken")
	require.Error(t, err)
	require.False(t, found)
	require.False(t, mr.Exists("test:broken"))
}
