package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/emrgen/boxsync/internal/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Server runs a node and its admin API until interrupted.
type Server struct {
	cfg *config.Config
}

// NewServer creates a new server
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Start runs the server until SIGINT or SIGTERM.
func (s *Server) Start() error {
	cfg := s.cfg

	db, err := config.GetDb(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	node, err := NewNode(cfg, db)
	if err != nil {
		return err
	}

	httpPort := ":" + cfg.HTTPPort
	rl, err := net.Listen("tcp", httpPort)
	if err != nil {
		return err
	}

	if err := node.Start(context.Background()); err != nil {
		node.Stop()
		_ = rl.Close()
		return err
	}

	restServer := &http.Server{
		Handler:           node.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// make sure to wait for the server to stop before exiting
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Info("starting admin api on: ", httpPort)
		if err := restServer.Serve(rl); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logrus.Errorf("error starting admin api: %v", err)
			}
		}
		logrus.Infof("admin api stopped")
	}()

	logrus.Infof("Press Ctrl+C to stop the server")

	// listen for interrupt signal to gracefully shut down the server
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGTERM, unix.SIGINT)
	<-sigs
	// clean Ctrl+C output
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := restServer.Shutdown(ctx); err != nil {
		logrus.Errorf("error stopping admin api: %v", err)
	}

	node.Stop()
	wg.Wait()

	return nil
}
