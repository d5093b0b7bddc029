// Package news fetches national headlines and turns them into a daily
// digest.
//
// Two providers are tried in order. HeadlinesClient asks NewsAPI for a fixed
// category mix; FeedFetcher reads a short list of syndication feeds when the
// API is unavailable or has nothing. Both produce Items, which Normalize
// maps onto pipeline records. NewJob stores one digest row per run holding
// the articles and the generated post.
package news
