// Package api provides the CoinCap REST API client.
//
// REST endpoint:
//   - https://api.coincap.io/v2
//
// Datasets fetched: /assets, /exchanges, /markets, /assets/{id}/markets,
// /assets/{id}/history?interval=d1. Every response is a JSON envelope of the
// form {"data": ..., "timestamp": <ms>}.
package api
