package main

import (
	"log/slog"
	"sync"
	"time"
)

const (
	QUEUE_BATCH_SIZE = 10

	// parallel variant generations per batch
	UPLOAD_EVENT_CONCURRENCY = 2

	MAX_FAILED_BATCHES_BEFORE_STOP = 10
)

func main() {
	slog.Info("Starting pipeline worker")
	start := time.Now()

	var wg sync.WaitGroup

	if conf.RunTasks.ProcessUploadEvents {
		wg.Add(1)
		go handleUploadEvents(&wg)
	}

	if conf.RunTasks.ProcessValidationTriggers {
		wg.Add(1)
		go handleValidationTriggers(&wg)
	}

	if conf.RunTasks.ProcessExportTriggers {
		wg.Add(1)
		go handleExportTriggers(&wg)
	}

	if conf.RunTasks.ProcessNotificationTriggers {
		wg.Add(1)
		go handleNotificationTriggers(&wg)
	}

	wg.Wait()
	slog.Info("Pipeline worker completed", slog.String("duration", time.Since(start).String()))
}
