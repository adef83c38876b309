// SPDX-License-Identifier: EPL-2.0

// Package server exposes the classification service over HTTP:
//
//	POST /classify  multipart field "audio"
//	GET  /health
//	GET  /models
//	GET  /metrics   Prometheus exposition, when metrics are enabled
package server
