package server

import "github.com/jrsteele09/onlyoffice-confluence/editor"

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Connect lifecycle
	RouteInstalled   = "/installed"
	RouteUninstalled = "/uninstalled"

	// Connect pages
	RouteConfigure = "/configure"
	RouteEditor    = "/onlyoffice-editor"

	// Document Server facing routes
	RouteDownload = editor.DownloadPath
	RouteCallback = editor.CallbackPath

	// Forge remote routes (invokeRemote)
	RouteRemoteAuthorization = "/api/v1/remote/authorization"
	RouteRemoteReferenceData = "/api/v1/remote/reference-data"
	RouteRemoteSettings      = "/api/v1/remote/settings"

	// Forge remote editor page, loaded in the custom UI iframe
	RouteRemoteEditor = "/editor/confluence"

	RouteHealth = "/healthz"
)
