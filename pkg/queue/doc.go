// Package queue runs a reliable job queue on top of a tube-based work queue (beanstalkd)
// with a secondary list store (Redis) for dead-lettering.
//
// Components
//
// Producers call Driver.Push to submit jobs to the main tube.
// Consumers run Driver.Consume, which reserves one job at a time, runs it,
// and then acknowledges, retries or dead-letters the delivery.
// The admin operations Reload, Flush and Info operate on the dead-letter lists.
//
// Properties
//
// Delivery is at-least-once. A job that fails is retried with a delay
// from the configured RetryPolicy as long as it allows more attempts (see MaxAttempter).
// Once attempts are exhausted, or the failed delivery could not be removed from the tube,
// the raw payload is pushed onto the failed list.
// Payloads that cannot be decoded are dead-lettered as well.
//
// Data structures
//
// All names derive from one base channel (see Channels).
// The main channel is a beanstalkd tube. The failed and timeout channels are Redis lists
// with LPUSH on write and RPOP on reload, so reload replays the oldest entries first.
//
// Concurrency
//
// A Driver is single-threaded: one loop owns the whole reserve, handle, ack cycle.
// Scale out by running more Drivers with their own work queue connections.
// The work queue's reservation semantics keep them from handling the same job twice.
package queue
