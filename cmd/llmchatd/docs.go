package main

// General API documentation for swaggo. The served document lives in
// internal/httpapi/swagger.go (build with -tags=swagger).
//
// @title           llmchatd API
// @version         0.1
// @description     HTTP API for a local LLM chat daemon: model lifecycle, conversations and streamed replies.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
