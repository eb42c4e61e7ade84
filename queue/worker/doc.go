// Package worker runs the question answering pipeline for jobs taken from
// the Redis queue.
//
// A Worker starts a fixed number of goroutines. Each one pops a job, answers
// it and publishes the result on the job's result channel. A heartbeat key is
// refreshed while the worker runs so operators can see live workers, and a
// shared counter tracks how many are running.
//
// Run blocks until its context is cancelled, then waits up to the shutdown
// timeout for in-flight jobs:
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	w := worker.New(client, p, worker.Options{Concurrency: 4})
//	if err := w.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package worker
