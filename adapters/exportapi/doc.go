// Package exportapi is the transport-agnostic HTTP controller for page exports.
//
// Transport bindings (net/http, fiber) adapt their request and response types
// to Request and Response and delegate to Controller.Serve.
package exportapi
