// Command airsense monitors an environmental air-quality sensor attached
// over a serial port, decodes its delimited telemetry stream, and serves the
// decoded state over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/airsense.report/internal/api"
	"github.com/banshee-data/airsense.report/internal/config"
	"github.com/banshee-data/airsense.report/internal/serialmux"
	"github.com/banshee-data/airsense.report/internal/telemetry"
	"github.com/banshee-data/airsense.report/internal/version"
)

var (
	devMode       = flag.Bool("dev", false, "Replay fixtures.txt instead of opening a serial port")
	disableSerial = flag.Bool("disable-serial", false, "Run without any serial transport")
	listen        = flag.String("listen", ":8080", "Listen address")
	serialPort    = flag.String("port", "/dev/ttyUSB0", "Serial port device path")
	configPath    = flag.String("config", "", "Path to JSON config file")
	seriesBound   = flag.Int("series-bound", 0, "Per-sensor history bound (0 uses the default)")
)

// settings is the merged result of flags and the optional config file. Config
// file values win over flag defaults; explicitly set flags win over both.
type settings struct {
	listen      string
	serialPort  string
	portOptions serialmux.PortOptions
	seriesBound int
	rawLogBound int
}

// resolveSettings merges the config file under the flag values. set reports
// which flags were passed explicitly on the command line.
func resolveSettings(cfg *config.Config, set map[string]bool) settings {
	s := settings{
		listen:      *listen,
		serialPort:  *serialPort,
		seriesBound: *seriesBound,
	}
	if cfg == nil {
		return s
	}

	s.portOptions = cfg.PortOptions()
	if cfg.Listen != nil && !set["listen"] {
		s.listen = *cfg.Listen
	}
	if cfg.SerialPort != nil && !set["port"] {
		s.serialPort = *cfg.SerialPort
	}
	if cfg.SeriesBound != nil && !set["series-bound"] {
		s.seriesBound = *cfg.SeriesBound
	}
	if cfg.RawLogBound != nil {
		s.rawLogBound = *cfg.RawLogBound
	}
	return s
}

func setFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func main() {
	flag.Parse()

	log.Printf("airsense %s starting", version.String())

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	var cfg *config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	s := resolveSettings(cfg, setFlags())

	var opts []telemetry.Option
	if s.seriesBound > 0 {
		opts = append(opts, telemetry.WithSeriesBound(s.seriesBound))
	}
	if s.rawLogBound > 0 {
		opts = append(opts, telemetry.WithRawLogBound(s.rawLogBound))
	}
	dec := telemetry.NewDecoder(opts...)

	var m serialmux.SerialMuxInterface
	switch {
	case *disableSerial:
		m = serialmux.NewDisabledSerialMux()
	case *devMode:
		data, err := os.ReadFile("fixtures.txt")
		if err != nil {
			log.Fatalf("failed to open fixtures file: %v", err)
		}
		m = serialmux.NewMockSerialMux(data, telemetry.ScanLines)
	default:
		var err error
		m, err = serialmux.NewRealSerialMux(serialmux.RealSerialPortFactory{}, s.serialPort, s.portOptions, telemetry.ScanLines)
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", s.serialPort, err)
		}
	}
	defer m.Close()

	// Create a wait group for the HTTP server, serial monitor, and decoder routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// subscribe to the serial port lines and feed them to the decoder in
	// arrival order
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := m.Subscribe()
		defer m.Unsubscribe(id)
		for {
			select {
			case line, ok := <-c:
				if !ok {
					log.Printf("decoder routine terminated: subscription closed")
					return
				}
				dec.Ingest(line)
			case <-ctx.Done():
				log.Printf("decoder routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the serial debugging routes (localhost operation only)
		serialmux.AttachDebugRoutes(mux, m)

		// mount the API handlers
		apiMux := api.NewServer(dec, m).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		server := &http.Server{
			Addr:    s.listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s", s.listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
