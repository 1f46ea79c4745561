// Command npsenrich enriches a survey dataset with calendar, astronomical,
// weather, geomagnetic and news features and writes the result as CSV.gz.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/avdeyev/npsenrich/internal/dataset"
	"github.com/avdeyev/npsenrich/internal/enrich"
	"github.com/avdeyev/npsenrich/internal/geomag"
	"github.com/avdeyev/npsenrich/internal/httputil"
	"github.com/avdeyev/npsenrich/internal/regions"
	"github.com/avdeyev/npsenrich/internal/weather"
)

var cli struct {
	Input  string `arg:"" help:"Source survey CSV." type:"existingfile"`
	Output string `short:"o" default:"enriched.csv.gz" help:"Path for the enriched gzip CSV."`

	Events  string `env:"NPS_EVENTS_TSV" help:"Tab-separated news event feed."`
	KpIndex string `env:"NPS_KP_INDEX" help:"Kp index JSON file."`
	ApIndex string `env:"NPS_AP_INDEX" help:"ap index JSON file."`

	WeatherCache string `env:"NPS_WEATHER_CACHE" default:"data/weather.db" help:"SQLite weather cache."`
	NoWeather    bool   `help:"Skip weather enrichment (offline run)."`

	FetchIndices bool   `help:"Download the Kp/ap archives over FTP before enriching."`
	FTPAddr      string `name:"ftp-addr" default:"ftp.gfz-potsdam.de:21" help:"Geomagnetic archive server."`
	KpRemote     string `default:"/pub/home/obs/Kp_ap_Ap_SN_F107/Kp_since_2022.json" help:"Remote path of the Kp archive."`
	ApRemote     string `default:"/pub/home/obs/Kp_ap_Ap_SN_F107/ap_since_2022.json" help:"Remote path of the ap archive."`

	TensionWindow int    `default:"5" help:"Trailing window for the tension index, days."`
	MetricsAddr   string `env:"NPS_METRICS_ADDR" help:"Expose Prometheus metrics on this address while running."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("npsenrich"),
		kong.Description("Enrich survey records with external daily context."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cli.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cli.MetricsAddr, mux); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	if cli.FetchIndices {
		if cli.KpIndex == "" || cli.ApIndex == "" {
			log.Fatal("--fetch-indices needs --kp-index and --ap-index destinations")
		}
		if err := geomag.FetchArchive(cli.FTPAddr, cli.KpRemote, cli.KpIndex); err != nil {
			log.Printf("fetch Kp archive: %v (continuing with any local copy)", err)
		}
		if err := geomag.FetchArchive(cli.FTPAddr, cli.ApRemote, cli.ApIndex); err != nil {
			log.Printf("fetch ap archive: %v (continuing with any local copy)", err)
		}
	}

	resolver, err := regions.NewResolver()
	if err != nil {
		log.Printf("polygon timezone finder unavailable, using static tables: %v", err)
		resolver, err = regions.NewResolverWithFinder(nil)
		if err != nil {
			log.Fatalf("init region resolver: %v", err)
		}
	}

	var weatherSvc *weather.Service
	if !cli.NoWeather {
		var cache *weather.Cache
		if cli.WeatherCache != "" {
			cache, err = weather.OpenCache(cli.WeatherCache)
			if err != nil {
				log.Printf("open weather cache: %v (running without cache)", err)
			} else {
				defer cache.Close()
			}
		}
		weatherSvc = weather.NewService(weather.NewClient(httputil.NewClient()), cache)
	}

	recs, header, err := dataset.Load(cli.Input)
	if err != nil {
		log.Fatalf("load dataset: %v", err)
	}
	log.Printf("loaded %d records from %s", len(recs), cli.Input)

	pipeline := enrich.New(resolver, weatherSvc, enrich.Config{
		EventsPath:    cli.Events,
		KpIndexPath:   cli.KpIndex,
		ApIndexPath:   cli.ApIndex,
		TensionWindow: cli.TensionWindow,
	})
	catalog, err := pipeline.Run(ctx, recs)
	if err != nil {
		log.Fatalf("enrich: %v", err)
	}
	log.Printf("produced %d feature columns", len(catalog))

	gaps := enrich.Missingness(recs, catalog)
	if len(gaps) == 0 {
		log.Printf("all feature columns fully populated")
	}
	for _, g := range gaps {
		log.Printf("missing %6.2f%%  %-40s %s", g.Pct, g.Column, g.Group)
	}

	if err := dataset.WriteGzip(cli.Output, recs, header, catalog); err != nil {
		log.Fatalf("write output: %v", err)
	}
	log.Printf("wrote %s: %d rows", cli.Output, len(recs))
}
