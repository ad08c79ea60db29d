// Package main provides the entry point for the BotForge platform.
// It runs a Fiber web server exposing a JSON API for managing chatbots,
// knowledge documents, share grants, plans and subscriptions, with
// role-based access control and quota enforcement backed by gorm.
package main
