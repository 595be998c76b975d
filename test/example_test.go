package test

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/labkm/labauth"
	"github.com/labkm/labauth/format"
	"github.com/labkm/labauth/route"
)

// ExampleNew builds a client whose credentials live in a shared Redis.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	cfg := labauth.DefaultConfig()
	cfg.Transport.BaseURL = "http://127.0.0.1:5000"
	cfg.Storage.Backend = labauth.StoreRedis

	client, err := labauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		Build(context.Background())
	if err != nil {
		return
	}
	defer client.Close()
	_ = client.Session().IsLoggedIn()
}

// ExampleClient_MetricsSnapshot shows how to read in-process counters.
func ExampleClient_MetricsSnapshot() {
	var client *labauth.Client
	snapshot := client.MetricsSnapshot()
	_ = snapshot
}

func Example_routeResolve() {
	m, err := route.DefaultTable().Resolve("/achievements/42/edit?tab=files")
	if err != nil {
		return
	}
	fmt.Println(m.Route.Name, m.Params["id"], m.Route.Meta.RequiresAuth)
	// Output: AchievementEdit 42 true
}

func Example_formatDate() {
	fmt.Println(format.FormatDate("2024-03-05", "DD/MM/YYYY"))
	// Output: 05/03/2024
}
