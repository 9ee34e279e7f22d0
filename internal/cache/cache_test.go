package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel/internal/cache"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestFetch_missLoadsAndStores(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := cache.New(db)

	mock.ExpectGet("flight:f-1").RedisNil()
	mock.ExpectSet("flight:f-1", []byte(`{"id":"f-1","name":"AA1"}`), cache.FlightTTL).SetVal("OK")

	loads := 0
	got, err := cache.Fetch(context.Background(), c, cache.FlightKey("f-1"), cache.FlightTTL, func(context.Context) (item, error) {
		loads++
		return item{ID: "f-1", Name: "AA1"}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "AA1", got.Name)
	assert.Equal(t, 1, loads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetch_hitSkipsLoad(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := cache.New(db)

	mock.ExpectGet("flight:f-1").SetVal(`{"id":"f-1","name":"cached"}`)

	got, err := cache.Fetch(context.Background(), c, "flight:f-1", time.Minute, func(context.Context) (item, error) {
		t.Fatal("load must not be called on a hit")
		return item{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cached", got.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetch_redisErrorsDegradeToSource(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := cache.New(db)

	mock.ExpectGet("flight:f-1").SetErr(errors.New("connection refused"))
	mock.ExpectSet("flight:f-1", []byte(`{"id":"f-1","name":"db"}`), time.Minute).SetErr(errors.New("connection refused"))

	got, err := cache.Fetch(context.Background(), c, "flight:f-1", time.Minute, func(context.Context) (item, error) {
		return item{ID: "f-1", Name: "db"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "db", got.Name)
}

func TestFetch_loadErrorIsNotCached(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := cache.New(db)

	mock.ExpectGet("flight:f-1").RedisNil()

	_, err := cache.Fetch(context.Background(), c, "flight:f-1", time.Minute, func(context.Context) (item, error) {
		return item{}, errors.New("not found")
	})
	assert.EqualError(t, err, "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePattern(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := cache.New(db)

	mock.ExpectScan(0, cache.AnalyticsPattern, 100).SetVal([]string{"admin:analytics:{}"}, 7)
	mock.ExpectDel("admin:analytics:{}").SetVal(1)
	mock.ExpectScan(7, cache.AnalyticsPattern, 100).SetVal([]string{`admin:analytics:{"bookingType":"car"}`}, 0)
	mock.ExpectDel(`admin:analytics:{"bookingType":"car"}`).SetVal(1)

	c.DeletePattern(context.Background(), cache.AnalyticsPattern)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNilClientAlwaysMisses(t *testing.T) {
	c := cache.New(nil)

	var dest item
	assert.False(t, c.GetJSON(context.Background(), "k", &dest))
	c.SetJSON(context.Background(), "k", item{}, time.Minute)
	c.DeletePattern(context.Background(), "*")
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "flight:f-1", cache.FlightKey("f-1"))
	assert.Equal(t,
		`flight:search:{"from":"WAW","to":"LHR"}`,
		cache.FlightSearchKey(map[string]string{"to": "LHR", "from": "WAW"}),
	)
	assert.Equal(t, "admin:analytics:{}", cache.AnalyticsKey(nil))
}
