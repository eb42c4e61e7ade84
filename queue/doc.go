// Package queue provides the Redis primitives behind asynchronous questions.
//
// Clients push a Job onto a list, a worker pops it, runs the question
// answering pipeline and publishes a Result on a job-specific pub/sub channel.
//
// # Redis Key Schema
//
//   - <queue name> - List of pending jobs (LPUSH/BRPOP), "moviequery:questions" by default
//   - moviequery:worker:<id>:health - String with a TTL, refreshed by each worker's heartbeat
//   - moviequery:workers - Integer counter of running workers
//   - results:<job id> - Pub/Sub channel carrying the job's Result
//
// # Usage
//
//	client, err := queue.NewRedisClient(queue.RedisOptions{URL: "redis://localhost:6379"})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	result, err := queue.Ask(ctx, client, queue.DefaultQueueName, "Who directed Heat?")
package queue
