package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fosdem/glupload/lib/config"
	glog "github.com/fosdem/glupload/lib/log"
	"github.com/fosdem/glupload/lib/pipeline"
)

func init() {
	// glfw must be initialised from the main thread
	runtime.LockOSThread()
}

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("Usage: %s <config file>", os.Args[0])
	}
	cfg, err := config.Parse(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	if err := glog.Setup(cfg.LogLevel); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := pipeline.MakeContextAndUpload(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}
