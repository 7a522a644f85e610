package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/d2oracle/oracle/core/catalog"
	"github.com/d2oracle/oracle/core/infra/bus"
	sdk "github.com/d2oracle/oracle/sdk/client"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	defaultServer  = "http://localhost:6969"
	requestTimeout = 15 * time.Second
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "score":
		runScoreCmd(args)
	case "metadata":
		runMetadataCmd(args)
	case "status":
		runStatusCmd(args)
	case "catalog":
		runCatalogCmd(args)
	case "events":
		runEventsCmd(args)
	default:
		usage()
		os.Exit(1)
	}
}

func runScoreCmd(args []string) {
	fs := newFlagSet("score")
	file := fs.String("file", "", "weapon json file")
	grpcAddr := fs.String("grpc", "", "score over gRPC at this address")
	natsURL := fs.String("nats", "", "score over NATS request-reply at this url")
	fs.ParseArgs(args)
	if *file == "" {
		fail("weapon file required")
	}
	// #nosec G304 -- CLI explicitly reads local files provided by the operator.
	body, err := os.ReadFile(*file)
	check(err)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch {
	case *grpcAddr != "":
		var req sdk.WeaponRequest
		loadJSON(*file, &req)
		conn, err := grpc.NewClient(*grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		check(err)
		defer conn.Close()
		out, err := sdk.NewGRPC(conn).Score(ctx, &req)
		check(err)
		printRaw(out)
	case *natsURL != "":
		nb, err := bus.NewNatsBus(*natsURL)
		check(err)
		defer nb.Close()
		out, err := nb.Request(ctx, bus.SubjectScore, body)
		check(err)
		printRaw(out)
	default:
		out, err := newClient(*fs.server).ScoreRaw(ctx, body)
		check(err)
		printRaw(out)
	}
}

func runMetadataCmd(args []string) {
	fs := newFlagSet("metadata")
	fs.ParseArgs(args)
	meta, err := newClient(*fs.server).Metadata(context.Background())
	check(err)
	printJSON(meta)
}

func runStatusCmd(args []string) {
	fs := newFlagSet("status")
	fs.ParseArgs(args)
	status, err := newClient(*fs.server).Status(context.Background())
	check(err)
	printJSON(status)
}

func runCatalogCmd(args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}
	switch args[0] {
	case "push":
		fs := newFlagSet("catalog push")
		file := fs.String("file", "", "catalog yaml file")
		redisURL := fs.String("redis", envOr("REDIS_URL", ""), "redis url")
		fs.ParseArgs(args[1:])
		if *file == "" {
			fail("catalog file required")
		}
		// #nosec G304 -- CLI explicitly reads local files provided by the operator.
		data, err := os.ReadFile(*file)
		check(err)
		store, err := catalog.NewRedisStore(*redisURL)
		check(err)
		defer store.Close()
		rev, err := store.Put(context.Background(), data)
		check(err)
		fmt.Printf("catalog revision %d\n", rev)
	case "show":
		fs := newFlagSet("catalog show")
		redisURL := fs.String("redis", envOr("REDIS_URL", ""), "redis url")
		fs.ParseArgs(args[1:])
		store, err := catalog.NewRedisStore(*redisURL)
		check(err)
		defer store.Close()
		cat, err := store.Load(context.Background())
		check(err)
		printJSON(map[string]any{
			"revision": cat.Revision(),
			"paths":    cat.Paths(),
		})
	default:
		usage()
		os.Exit(1)
	}
}

func runEventsCmd(args []string) {
	fs := newFlagSet("events")
	natsURL := fs.String("nats", envOr("NATS_URL", "nats://localhost:4222"), "nats url")
	fs.ParseArgs(args)
	nb, err := bus.NewNatsBus(*natsURL)
	check(err)
	defer nb.Close()
	check(nb.Subscribe(bus.SubjectScored, "", func(data []byte) error {
		printRaw(data)
		return nil
	}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}

type flagSet struct {
	*flag.FlagSet
	server *string
}

func newFlagSet(name string) *flagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	server := fs.String("server", envOr("ORACLE_SERVER", defaultServer), "oracle server base url")
	return &flagSet{FlagSet: fs, server: server}
}

func (fs *flagSet) ParseArgs(args []string) {
	if err := fs.Parse(args); err != nil {
		fail(err.Error())
	}
}

func newClient(server string) *sdk.Client {
	return sdk.New(strings.TrimRight(server, "/"))
}

func loadJSON(path string, out any) {
	// #nosec G304 -- CLI explicitly reads local files provided by the operator.
	data, err := os.ReadFile(path)
	check(err)
	if err := json.Unmarshal(data, out); err != nil {
		fail(fmt.Sprintf("invalid json: %v", err))
	}
}

func printJSON(value any) {
	data, err := json.MarshalIndent(value, "", "  ")
	check(err)
	fmt.Println(string(data))
}

func printRaw(data []byte) {
	fmt.Println(strings.TrimSpace(string(data)))
}

func usage() {
	fmt.Print(`oraclectl - weapon oracle CLI

Usage:
  oraclectl score --file weapon.json [--grpc host:port | --nats url]
  oraclectl metadata
  oraclectl status
  oraclectl catalog push --file catalog.yaml [--redis url]
  oraclectl catalog show [--redis url]
  oraclectl events [--nats url]

Global flags:
  --server   Oracle base URL (default from ORACLE_SERVER)
`)
}

func envOr(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func check(err error) {
	if err != nil {
		fail(err.Error())
	}
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
