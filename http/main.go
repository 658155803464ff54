package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"dev.hon.one/argon/common"
	"dev.hon.one/argon/db"
	"dev.hon.one/argon/policy"
	"dev.hon.one/argon/util"
)

// StartServer - Start HTTP server in the background.
func StartServer(waitGroup *sync.WaitGroup, shutdown *util.ShutdownChannelDistributor) {
	shutdownChannel := make(chan bool, 1)
	if !shutdown.AddListener(shutdownChannel) {
		return
	}
	waitGroup.Add(1)

	server := &http.Server{
		Addr:    common.GlobalConfig.HTTPEndpoint,
		Handler: newServeMux(&common.GlobalStatus, common.GlobalConfig.Device.Address),
	}

	// Run
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server failed")
		}
		log.Info("HTTP server stopped")
		waitGroup.Done()
	}()

	// Shutdown
	go func() {
		<-shutdownChannel
		shutdownContext, shutdownContextCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownContextCancel()
		server.Shutdown(shutdownContext)
	}()

	log.Infof("HTTP server started: %v", common.GlobalConfig.HTTPEndpoint)
}

func newServeMux(status *common.Status, device string) *http.ServeMux {
	mainServeMux := http.NewServeMux()
	mainServeMux.HandleFunc("/", handleOtherRequest)
	mainServeMux.HandleFunc("/metrics", func(response http.ResponseWriter, request *http.Request) {
		handleMetricsRequest(status, device, response, request)
	})
	mainServeMux.HandleFunc("/status", func(response http.ResponseWriter, request *http.Request) {
		handleStatusRequest(status, device, response, request)
	})
	return mainServeMux
}

func handleOtherRequest(response http.ResponseWriter, request *http.Request) {
	if request.URL.Path == "/" {
		fmt.Fprintf(response, "%s version %s by %s.\n", common.AppName, common.AppVersion, common.AppAuthor)
		fmt.Fprintf(response, "\nPaths:\n")
		fmt.Fprintf(response, "- Metrics: /metrics\n")
		fmt.Fprintf(response, "- Status: /status\n")
	} else {
		message := fmt.Sprintf("404 - Page not found.\n")
		http.Error(response, message, 404)
	}
}

func handleMetricsRequest(status *common.Status, device string, response http.ResponseWriter, request *http.Request) {
	log.WithFields(log.Fields{
		"endpoint": "metrics",
		"client":   request.RemoteAddr,
		"url":      request.URL,
	}).Trace("Request")

	// Build registry with data
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	util.NewExporterMetric(registry, common.PrometheusNamespace, common.AppVersion)

	snapshot := status.Snapshot()
	namespace := common.PrometheusNamespace
	deviceLabels := prometheus.Labels{"device": device}
	util.NewCounter(registry, namespace, "watch", "cycles_total", "Number of watch cycles run.", deviceLabels).Add(float64(snapshot.CycleCount))
	util.NewCounter(registry, namespace, "watch", "cycle_failures_total", "Number of watch cycles ending in an absorbed failure.", deviceLabels).Add(float64(snapshot.FailureCount))
	util.NewCounter(registry, namespace, "watch", "login_failures_total", "Number of failed logins to a reachable device.", deviceLabels).Add(float64(snapshot.LoginFailures))
	util.NewCounter(registry, namespace, "watch", "reboots_total", "Number of reboots issued.", deviceLabels).Add(float64(snapshot.RebootCount))
	if snapshot.HasCycle {
		lastCycle := snapshot.LastCycle
		util.NewGauge(registry, namespace, "device", "reachable", "If the device responded in the last cycle.", deviceLabels).Set(util.BoolToFloat(lastCycle.Reachable))
		util.NewGauge(registry, namespace, "wan", "address_known", "If the WAN address is known.", deviceLabels).Set(util.BoolToFloat(lastCycle.Address.Known))
		util.NewGauge(registry, namespace, "wan", "address_carrier_nat", "If the WAN address is in the carrier NAT range.", deviceLabels).Set(util.BoolToFloat(policy.ShouldRestart(lastCycle.Address)))
		util.NewGauge(registry, namespace, "watch", "last_cycle_timestamp_seconds", "Start time of the last cycle.", deviceLabels).Set(float64(lastCycle.Time.Unix()))
		util.NewGauge(registry, namespace, "watch", "last_cycle_duration_seconds", "Duration of the last cycle.", deviceLabels).Set(lastCycle.Duration.Seconds())
	}
	if recentReboots, ok := db.FetchRecentRebootCount(request.Context()); ok {
		util.NewGauge(registry, namespace, "watch", "recent_reboots", "Number of reboots stored within the last day.", deviceLabels).Set(float64(recentReboots))
	}

	// Delegate final handling to Prometheus
	promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP(response, request)
}

type statusResponse struct {
	Device        string  `json:"device"`
	CycleCount    uint64  `json:"cycle_count"`
	RebootCount   uint64  `json:"reboot_count"`
	LastCycleTime string  `json:"last_cycle_time,omitempty"`
	Duration      float64 `json:"last_cycle_duration_seconds"`
	Reachable     bool    `json:"reachable"`
	LoggedIn      bool    `json:"logged_in"`
	Address       *string `json:"address"`
	Restart       bool    `json:"restart"`
	FinalState    string  `json:"final_state,omitempty"`
	Error         string  `json:"error,omitempty"`
}

func handleStatusRequest(status *common.Status, device string, response http.ResponseWriter, request *http.Request) {
	log.WithFields(log.Fields{
		"endpoint": "status",
		"client":   request.RemoteAddr,
	}).Trace("Request")

	snapshot := status.Snapshot()
	body := statusResponse{
		Device:      device,
		CycleCount:  snapshot.CycleCount,
		RebootCount: snapshot.RebootCount,
	}
	if snapshot.HasCycle {
		lastCycle := snapshot.LastCycle
		body.LastCycleTime = lastCycle.Time.Format(time.RFC3339)
		body.Duration = lastCycle.Duration.Seconds()
		body.Reachable = lastCycle.Reachable
		body.LoggedIn = lastCycle.LoggedIn
		body.Restart = lastCycle.Restart
		body.FinalState = lastCycle.FinalState
		body.Error = lastCycle.Error
		if lastCycle.Address.Known {
			address := lastCycle.Address.Value
			body.Address = &address
		}
	}

	response.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(response).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to write status response")
	}
}
