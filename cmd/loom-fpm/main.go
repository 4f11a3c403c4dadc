// Command loom-fpm is the FastCGI Process Manager: a master process
// that accepts FastCGI connections, dispatches each request to a pool
// worker, and executes the precompiled Chunk SCRIPT_FILENAME names
// against a shared Engine (spec §4.K/§4.L's lifecycle, fronted by the
// teacher's FPM process-management model).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/loomphp/loom/internal/config"
	"github.com/loomphp/loom/pkg/fpm/handler"
	"github.com/loomphp/loom/pkg/fpm/master"
	"github.com/loomphp/loom/pkg/fpm/pool"
	"github.com/loomphp/loom/runtime"
	"github.com/loomphp/loom/stdlib"
	"github.com/loomphp/loom/version"
)

func main() {
	app := &cli.Command{
		Name:    "loom-fpm",
		Usage:   "FastCGI process manager for the loom bytecode engine",
		Version: version.Version(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "fpm-config",
				Aliases: []string{"y"},
				Usage:   "Path to the YAML FPM configuration file",
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Listen address (e.g., 127.0.0.1:9000)",
				Value: "127.0.0.1:9000",
			},
			&cli.StringFlag{
				Name:  "pid",
				Usage: "Path to PID file",
				Value: "/var/run/loom-fpm.pid",
			},
			&cli.StringFlag{
				Name:  "pm",
				Usage: "Process management mode (static, dynamic, ondemand)",
				Value: "dynamic",
			},
			&cli.IntFlag{
				Name:  "pm-max-children",
				Usage: "Maximum number of child processes",
				Value: 50,
			},
			&cli.IntFlag{
				Name:  "pm-start-servers",
				Usage: "Number of child processes to start (dynamic mode)",
				Value: 5,
			},
			&cli.IntFlag{
				Name:  "pm-min-spare-servers",
				Usage: "Minimum number of idle processes (dynamic mode)",
				Value: 5,
			},
			&cli.IntFlag{
				Name:  "pm-max-spare-servers",
				Usage: "Maximum number of idle processes (dynamic mode)",
				Value: 35,
			},
			&cli.IntFlag{
				Name:  "pm-max-requests",
				Usage: "Number of requests each worker handles before respawning",
				Value: 500,
			},
			&cli.BoolFlag{
				Name:    "test",
				Aliases: []string{"t"},
				Usage:   "Test configuration and exit",
			},
		},
		Action: runFPM,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func runFPM(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("test") {
		fmt.Println("Configuration test successful")
		return nil
	}

	poolConfig := cfg.PoolConfigs()[0]

	masterConfig := &master.MasterConfig{
		Listen:     cmd.String("listen"),
		PIDFile:    cmd.String("pid"),
		ErrorLog:   cfg.Global.ErrorLog,
		LogLevel:   cfg.Global.LogLevel,
		PoolConfig: poolConfig,
	}

	engine, err := runtime.NewEngine(stdlib.Extensions()...)
	if err != nil {
		return fmt.Errorf("failed to build engine: %v", err)
	}

	m := master.NewMaster(masterConfig, engine, handler.GobChunkLoader)

	if err := m.Start(); err != nil {
		return fmt.Errorf("failed to start FPM: %v", err)
	}

	log.Printf("loom-fpm started successfully")
	log.Printf("Listening on: %s", masterConfig.Listen)
	log.Printf("Process management: %s", poolConfig.ProcessManagement)
	log.Printf("Max children: %d", poolConfig.MaxChildren)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	sig := <-sigChan
	log.Printf("Received signal %v, shutting down gracefully", sig)

	m.GracefulShutdown()
	m.Wait()

	log.Printf("loom-fpm shutdown complete")
	return nil
}

// loadConfig reads --fpm-config if supplied, otherwise starts from
// config.Default() and layers the individual --pm-* flags onto its
// first pool, matching the teacher's flag-first CLI surface while
// gaining the new YAML document for anything flags don't cover.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := cmd.String("fpm-config"); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load fpm config: %v", err)
		}
	} else {
		cfg = config.Default()
	}

	if len(cfg.Pools) == 0 {
		return nil, fmt.Errorf("fpm config declares no pools")
	}

	pm := pool.ProcessManagement(cmd.String("pm"))
	if pm != pool.PMStatic && pm != pool.PMDynamic && pm != pool.PMOndemand {
		return nil, fmt.Errorf("invalid process management mode: %s (must be static, dynamic, or ondemand)", pm)
	}
	p := &cfg.Pools[0]
	p.ProcessManagement = string(pm)
	p.MaxChildren = cmd.Int("pm-max-children")
	p.StartServers = cmd.Int("pm-start-servers")
	p.MinSpareServers = cmd.Int("pm-min-spare-servers")
	p.MaxSpareServers = cmd.Int("pm-max-spare-servers")
	p.MaxRequests = cmd.Int("pm-max-requests")

	return cfg, nil
}
