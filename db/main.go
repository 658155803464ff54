package db

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"dev.hon.one/argon/common"
	"dev.hon.one/argon/util"
)

// InfluxDBBucket - InfluxDB bucket.
const InfluxDBBucket = "argon"

// InfluxDBQueryRecentTime - InfluxDB-formatted time to consider for fetching "recent" entries.
const InfluxDBQueryRecentTime = "-24h"

var clientMutex sync.RWMutex
var clientQueryAPI influxdb2api.QueryAPI
var clientWriteAPI influxdb2api.WriteAPI

// StartClient - Start DB client. Does nothing if no DB URL is configured.
func StartClient(waitGroup *sync.WaitGroup, shutdown *util.ShutdownChannelDistributor) {
	if common.GlobalConfig.InfluxDBURL == "" {
		log.Info("DB client disabled")
		return
	}

	// Setup shutdown signal and waitgroup
	shutdownChannel := make(chan bool, 1)
	if !shutdown.AddListener(shutdownChannel) {
		return
	}
	waitGroup.Add(1)

	newClient := influxdb2.NewClient(common.GlobalConfig.InfluxDBURL, common.GlobalConfig.InfluxDBToken)

	cleanup := func() {
		clientMutex.Lock()
		localWriteAPI := clientWriteAPI
		clientQueryAPI = nil
		clientWriteAPI = nil
		clientMutex.Unlock()
		if localWriteAPI != nil {
			localWriteAPI.Flush()
		}
		newClient.Close()
		log.Info("DB client stopped")
		waitGroup.Done()
	}

	go func() {
		// Wait for DB connection (true) to come up or for shutdown signal (false)
		if !waitForDBUp(newClient, shutdownChannel) {
			cleanup()
			return
		}

		// Setup query API, async write API and error logging
		writeAPI := newClient.WriteAPI(common.GlobalConfig.InfluxDBOrg, InfluxDBBucket)
		go func() {
			for err := range writeAPI.Errors() {
				log.WithError(err).Error("Failed to write to database")
			}
		}()
		clientMutex.Lock()
		clientQueryAPI = newClient.QueryAPI(common.GlobalConfig.InfluxDBOrg)
		clientWriteAPI = writeAPI
		clientMutex.Unlock()
		log.Info("DB client started: ", common.GlobalConfig.InfluxDBURL)

		<-shutdownChannel
		cleanup()
	}()
}

func waitForDBUp(dbClient influxdb2.Client, shutdownChannel <-chan bool) bool {
	checkHealth := func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := dbClient.Health(ctx)
		if err != nil {
			log.WithError(err).Tracef("Database connection error")
			return false
		}
		return true
	}
	if checkHealth() {
		return true
	}
	log.Info("Waiting for database")
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if checkHealth() {
				return true
			}
		case <-shutdownChannel:
			return false
		}
	}
}

func writeAPI() influxdb2api.WriteAPI {
	clientMutex.RLock()
	defer clientMutex.RUnlock()
	return clientWriteAPI
}

func queryAPI() influxdb2api.QueryAPI {
	clientMutex.RLock()
	defer clientMutex.RUnlock()
	return clientQueryAPI
}

// StoreCycleEntry - Attempt to store a cycle entry in the DB.
func StoreCycleEntry(entry common.CycleEntry) {
	log.WithFields(log.Fields{
		"source":      entry.Source,
		"time":        entry.Time,
		"duration":    entry.Duration,
		"reachable":   entry.Reachable,
		"logged_in":   entry.LoggedIn,
		"address":     entry.Address.String(),
		"restart":     entry.Restart,
		"final_state": entry.FinalState,
		"success":     entry.Success(),
	}).Trace("Cycle entry")

	api := writeAPI()
	if api == nil {
		return
	}
	api.WritePoint(newCyclePoint(entry))
}

func newCyclePoint(entry common.CycleEntry) *influxdb2write.Point {
	return influxdb2.NewPointWithMeasurement("cycle").
		AddTag("source", entry.Source).
		AddField("duration_seconds", float64(entry.Duration)/float64(time.Second)).
		AddField("reachable", entry.Reachable).
		AddField("logged_in", entry.LoggedIn).
		AddField("address", entry.Address.Value).
		AddField("address_known", entry.Address.Known).
		AddField("restart", entry.Restart).
		AddField("rebooted", entry.Rebooted).
		AddField("final_state", entry.FinalState).
		AddField("success", entry.Success()).
		SetTime(entry.Time)
}

// StoreRebootEntry - Attempt to store a reboot entry in the DB.
func StoreRebootEntry(entry common.RebootEntry) {
	log.WithFields(log.Fields{
		"source":  entry.Source,
		"time":    entry.Time,
		"address": entry.Address,
		"success": entry.Success,
	}).Trace("Reboot entry")

	api := writeAPI()
	if api == nil {
		return
	}
	api.WritePoint(newRebootPoint(entry))
}

func newRebootPoint(entry common.RebootEntry) *influxdb2write.Point {
	return influxdb2.NewPointWithMeasurement("reboot").
		AddTag("source", entry.Source).
		AddField("address", entry.Address).
		AddField("success", entry.Success).
		SetTime(entry.Time)
}

// FetchRecentRebootCount - Count reboots stored within the recent window. False if the DB is unavailable.
func FetchRecentRebootCount(ctx context.Context) (int, bool) {
	api := queryAPI()
	if api == nil {
		return 0, false
	}

	measurement := "reboot"
	result, err := api.Query(ctx, `from(bucket:"`+InfluxDBBucket+`") |> range(start: `+InfluxDBQueryRecentTime+`) |> filter(fn: (r) => r._measurement == "`+measurement+`" and r._field == "success")`)
	if err != nil {
		log.WithError(err).Error("Failed to query from database")
		return 0, false
	}
	defer result.Close()

	count := 0
	for result.Next() {
		count++
	}
	if result.Err() != nil {
		log.WithError(result.Err()).Error("Failed to parse query result")
		return 0, false
	}
	return count, true
}
