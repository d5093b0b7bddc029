// Package enrich derives a short social post from a batch of news records
// using a generative text service, falling back to a fixed post whenever
// the service fails.
package enrich
