// Package handlers implements the moderation API endpoints:
//
//	POST /v1/moderation/classify
//	GET  /v1/moderation/records
//	GET  /v1/moderation/records/{id}
//
// Verdicts are written with 200, structural rejections with 422 and
// internal failures with 500. Request errors outside the classify contract
// use types.ErrorResponse.
package handlers
