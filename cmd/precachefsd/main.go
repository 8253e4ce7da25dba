// Command precachefsd mounts a read-side prefetch cache over a local
// directory or an S3 bucket, serving it as a FUSE filesystem.
//
// Usage:
//
//	precachefsd mount --root s3://my-bucket/dataset --mount-point /mnt/data
//	precachefsd status --config /etc/precachefs/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/precachefs/precachefs/internal/adapter"
	"github.com/precachefs/precachefs/internal/config"
	"github.com/precachefs/precachefs/pkg/utils"
)

const shutdownGrace = 10 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "mount":
		err = runMount(os.Args[2:])
	case "status":
		err = runStatus(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `precachefsd mounts a prefetch cache as a FUSE filesystem.

Usage:

	precachefsd mount  [flags]   start the FUSE mount and block until signaled
	precachefsd status [flags]   print cache occupancy for a running mount's config
	precachefsd help             show this message`)
}

func runMount(args []string) error {
	fs := flag.NewFlagSet("mount", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML configuration file")
	root := fs.String("root", "", "backing store root: local path or s3://bucket/prefix (overrides config)")
	mountPoint := fs.String("mount-point", "", "directory to mount at (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *root != "" {
		cfg.Mount.Root = *root
	}
	if *mountPoint != "" {
		cfg.Mount.MountPoint = *mountPoint
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := adapter.New(ctx, cfg.Mount.Root, cfg.Mount.MountPoint, cfg)
	if err != nil {
		return fmt.Errorf("build adapter: %w", err)
	}
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start adapter: %w", err)
	}

	log.Printf("mounted %s at %s, press Ctrl-C to unmount", cfg.Mount.Root, cfg.Mount.MountPoint)
	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer stopCancel()
	return a.Stop(stopCtx)
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML configuration file")
	root := fs.String("root", "", "backing store root: local path or s3://bucket/prefix (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *root != "" {
		cfg.Mount.Root = *root
	}

	ctx := context.Background()
	a, err := adapter.New(ctx, cfg.Mount.Root, cfg.Mount.MountPoint, cfg)
	if err != nil {
		return fmt.Errorf("build adapter: %w", err)
	}

	fmt.Print(a.Manager().Status())

	health := a.Health().Check(ctx)
	fmt.Printf("backend: %s", health.Status)
	if health.Message != "" {
		fmt.Printf(" (%s)", health.Message)
	}
	fmt.Println()
	return nil
}

func loadConfig(path string) (*config.Configuration, error) {
	cfg := config.NewDefault()
	if path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}
	if err := utils.SetupLogging(cfg.Global.LogLevel, cfg.Global.LogFile); err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	return cfg, nil
}
