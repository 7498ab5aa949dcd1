package web

import "github.com/labstack/echo/v4"

// EchoRouter is the subset of echo's routing surface the handlers need.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// Server is the handler set of the venue API.
type Server interface {
	Venues(c echo.Context) error
	Events(c echo.Context) error
	Facets(c echo.Context) error
	Images(c echo.Context) error
	ImageProxy(c echo.Context) error
	Refresh(c echo.Context) error
}

func RegisterHandlers(router EchoRouter, si Server, _ ...echo.MiddlewareFunc) {
	router.GET("/api/venues", si.Venues).Name = "venues"
	router.GET("/api/events", si.Events).Name = "events"
	router.GET("/api/facets", si.Facets).Name = "facets"
	router.GET("/api/images", si.Images).Name = "images"
	router.GET("/api/refresh", si.Refresh).Name = "refresh"
	router.GET("/images/proxy", si.ImageProxy).Name = "image-proxy"
}
