package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/esacci/odpcore/internal/model"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return &Client{rdb: rdb}
}

func TestStore_RecordRoundTrip(t *testing.T) {
	c := newTestClient(t)
	store := NewStore(c, time.Minute)
	ctx := context.Background()

	id := model.DrsId("esacci.SST.day.L4.SSTdepth.multi-sensor.multi-platform.OSTIA.1-1.r1")
	rec := &model.DatasetRecord{DrsID: id, Title: "ESA CCI SST", Facet: &model.FacetBlock{NumFiles: 3}}

	if err := store.PutRecord(ctx, rec); err != nil {
		t.Fatalf("PutRecord: %v", err)
	}
	got, ok, err := store.GetRecord(ctx, id)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if got.Title != rec.Title || got.Facet.NumFiles != 3 {
		t.Fatalf("round-tripped record mismatch: %+v", got)
	}
}

func TestStore_Discard(t *testing.T) {
	c := newTestClient(t)
	store := NewStore(c, time.Minute)
	ctx := context.Background()
	id := model.DrsId("esacci.SST.day.L4.SSTdepth.multi-sensor.multi-platform.OSTIA.1-1.r1")

	store.PutRecord(ctx, &model.DatasetRecord{DrsID: id})
	if err := store.Discard(ctx, id); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	_, ok, err := store.GetRecord(ctx, id)
	if err != nil {
		t.Fatalf("GetRecord after discard: %v", err)
	}
	if ok {
		t.Fatalf("expected cache miss after discard")
	}
}
