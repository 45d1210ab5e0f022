package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-schoolmap/internal/district"
	"github.com/joeblew999/plat-schoolmap/internal/geocode"
	"github.com/joeblew999/plat-schoolmap/internal/legend"
	"github.com/joeblew999/plat-schoolmap/internal/metrics"
	"github.com/joeblew999/plat-schoolmap/internal/search"
	"github.com/joeblew999/plat-schoolmap/internal/server"
	"github.com/joeblew999/plat-schoolmap/internal/viewmode"
)

const version = "0.1.0"

// Options defines all CLI flags and env vars for the map server.
// Flags: --host, --port, --data, --district, --geocoder-url, --log-level
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA, SERVICE_DISTRICT, ...
type Options struct {
	Host        string `doc:"Host to bind to" default:"0.0.0.0"`
	Port        int    `doc:"Port to listen on" short:"p" default:"8086"`
	Data        string `doc:"Directory or base URL holding the district GeoJSON files" default:"data"`
	District    string `doc:"Path to a YAML district profile (defaults to Durham Public Schools)"`
	GeocoderURL string `doc:"Nominatim compatible search endpoint" default:"https://nominatim.openstreetmap.org/search"`
	Fragments   string `doc:"Serve HTML fragments from this directory instead of the embedded copies"`
	LogLevel    string `doc:"Log level (debug, info, warn, error)" default:"info"`
	Secure      bool   `doc:"Mark the session cookie HTTPS only"`
}

type deps struct {
	logger  zerolog.Logger
	profile district.Profile
	dataset *district.Dataset
}

func load(opts *Options) (*deps, error) {
	logger := server.NewLogger(opts.LogLevel)

	profile, err := district.LoadProfile(opts.District)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ds, err := district.Load(ctx, district.NewSource(opts.Data), profile.Resources, logger)
	if err != nil {
		return nil, err
	}
	return &deps{logger: logger, profile: profile, dataset: ds}, nil
}

func newGeocoder(opts *Options, d *deps) *geocode.Client {
	return geocode.NewClient(geocode.ClientConfig{
		BaseURL:      opts.GeocoderURL,
		ViewBox:      d.profile.ViewBox,
		CountryCodes: d.profile.CountryCodes,
		UserAgent:    d.profile.UserAgent,
		Logger:       d.logger,
	})
}

func newServer(opts *Options, d *deps) (*server.Server, error) {
	return server.New(server.Config{
		Host:          opts.Host,
		Port:          fmt.Sprintf("%d", opts.Port),
		Version:       version,
		Profile:       d.profile,
		Dataset:       d.dataset,
		Source:        opts.Data,
		Geocoder:      newGeocoder(opts, d),
		Logger:        d.logger,
		Metrics:       metrics.New(),
		FragmentsDir:  opts.Fragments,
		SecureCookies: opts.Secure,
	})
}

func mustLoad(opts *Options) *deps {
	d, err := load(opts)
	if err != nil {
		log.Fatalf("Loading district data: %v", err)
	}
	return d
}

func printOut(v any, asYAML bool) {
	var (
		output []byte
		err    error
	)
	if asYAML {
		output, err = yaml.Marshal(v)
	} else {
		output, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(output))
}

func main() {
	// A missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		d := mustLoad(opts)
		srv, err := newServer(opts, d)
		if err != nil {
			log.Fatalf("Server setup: %v", err)
		}

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
			Handler:           srv,
			ReadHeaderTimeout: 10 * time.Second,
		}

		hooks.OnStart(func() {
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("%s map server starting...\n", d.profile.Name)
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s (%d schools)\n", opts.Data, len(d.dataset.Schools()))
			fmt.Println()
			fmt.Printf("  Viewer:  %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("Server error: %v", err)
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(ctx)
			_ = srv.Close()
		})
	})

	cli.Root().Use = "schoolmap"
	cli.Root().Short = "Interactive school district map"
	cli.Root().Version = version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(opts, &deps{
				logger:  zerolog.Nop(),
				profile: district.DefaultProfile(),
				dataset: district.NewDataset(nil, nil, nil),
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error building server: %v\n", err)
				os.Exit(1)
			}
			useYAML, _ := cmd.Flags().GetBool("yaml")
			printOut(srv.OpenAPI(), useYAML)
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// legend subcommand: print the legend a mode produces
	legendCmd := &cobra.Command{
		Use:   "legend",
		Short: "Print the legend for a view mode",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			name, _ := cmd.Flags().GetString("mode")
			mode, err := viewmode.Parse(name)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			region, _ := cmd.Flags().GetString("region")
			useYAML, _ := cmd.Flags().GetBool("yaml")
			printOut(legend.Build(mode, region), useYAML)
		}),
	}
	legendCmd.Flags().StringP("mode", "m", "default", "View mode (default, isp, capacity, programs, feeder)")
	legendCmd.Flags().StringP("region", "r", "", "Selected feeder region")
	legendCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(legendCmd)

	// search subcommand: match schools, falling back to the geocoder
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search schools by name, or geocode an address",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			d := mustLoad(opts)
			query := args[0]

			var schools []string
			for _, r := range search.NewIndex(d.dataset.Names()).Match(query) {
				if r.Kind == search.KindSchool {
					schools = append(schools, fmt.Sprintf("%s (%s)", r.Label(), r.Badge()))
				}
			}
			if len(schools) > 0 {
				for _, s := range schools {
					fmt.Println(s)
				}
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			res, err := newGeocoder(opts, d).Geocode(ctx, query)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Geocode failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("%s\n  %.5f, %.5f\n", res.Short(), res.Location.Lat(), res.Location.Lon())
		}),
	}
	cli.Root().AddCommand(searchCmd)

	cli.Run()
}
