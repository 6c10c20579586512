// Package api serves the conversation engine over HTTP with fiber.
//
// A client posts each user message to /v1/conversation and carries the
// returned sessionId into the next turn. The server keeps nothing between
// requests; the session lives in the profile store behind the controller.
package api
