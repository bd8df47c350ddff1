// Command devbridge speaks the storage bridge protocol against Redis:
//
//	devbridge <put|get|verify> <base64 JSON arguments>
//
// Point bridge.command at it and set redis.url to run the primary storage path locally.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"vaultid/internal/devbridge"
	"vaultid/internal/platform/config"
	"vaultid/internal/platform/redis"
	"vaultid/internal/storage/bridge"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) != 3 {
		return report(fmt.Errorf("usage: %s <command> <base64-args>", os.Args[0]))
	}
	cfg, err := config.Load(os.Getenv("VAULTID_CONFIG"))
	if err != nil {
		return report(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return report(err)
	}
	defer client.Close()

	return devbridge.Handle(ctx, devbridge.NewStore(client), os.Args[1], os.Args[2], os.Stdout)
}

// report prints err as a failed bridge response so the caller sees the reason.
func report(err error) error {
	line, merr := json.Marshal(bridge.Response{Error: err.Error()})
	if merr == nil {
		fmt.Fprintf(os.Stdout, "%s\n", line)
	}
	return err
}
