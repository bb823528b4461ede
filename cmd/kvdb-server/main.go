// Command kvdb-server opens a store and serves it over net/rpc.
package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"kvdb/engine"
	kvrpc "kvdb/rpc"
)

const (
	defaultAddr = "127.0.0.1:5051"
	defaultPath = "db"
)

func main() {
	flag.Parse()

	addr := defaultAddr
	dbPath := defaultPath
	if args := flag.Args(); len(args) > 0 {
		addr = args[0]
		if len(args) > 1 {
			dbPath = args[1]
		}
	}

	e, err := engine.Open(dbPath, engine.DefaultOptions())
	if err != nil {
		log.Fatalf("opening database at %s: %v", dbPath, err)
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("listening on %s: %v", addr, err)
	}

	log.Printf("kvdb server listening on %s", addr)
	log.Printf("database path: %s", dbPath)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("shutting down")
		lis.Close()
		if err := e.Close(); err != nil {
			log.Printf("closing database: %v", err)
		}
		os.Exit(0)
	}()

	if err := kvrpc.Serve(lis, kvrpc.NewService(e)); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
