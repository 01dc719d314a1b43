package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.vocdoni.io/dvote/log"

	"github.com/zknote/shieldpool/service"
	"github.com/zknote/shieldpool/tree"
)

func main() {
	dataDir := flag.String("datadir", ".shieldpool", "data directory for the pool database")
	host := flag.String("host", "0.0.0.0", "API host to bind")
	port := flag.Int("port", 8080, "API port to bind")
	depth := flag.Int("depth", 20, "accumulator tree depth (first start only)")
	historySize := flag.Int("historySize", tree.DefaultRootHistory, "root history window size (first start only)")
	logLevel := flag.String("loglevel", "info", "log level (debug, info, warn, error)")
	mockProver := flag.Bool("mockProver", false, "use the satisfiability checker instead of Groth16 (testing only)")
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	svc := service.New(service.Config{
		DataDir:     *dataDir,
		Host:        *host,
		Port:        *port,
		Depth:       *depth,
		HistorySize: *historySize,
		MockProver:  *mockProver,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		log.Fatalf("failed to start pool service: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Infow("shutting down", "signal", sig.String())
	svc.Stop()
}
