package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// Connect lifecycle
	s.RegisterRouteHandler("POST "+RouteInstalled, ChainMiddleware(s.InstalledHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteUninstalled, ChainMiddleware(s.UninstalledHandler(), s.APIMiddleware()...))

	// Connect pages
	s.RegisterRouteHandler("GET "+RouteEditor, ChainMiddleware(s.EditorPageHandler(), s.HTMLMiddleWare(s.RequireConnect(false))...))
	s.RegisterRouteHandler("GET "+RouteConfigure, ChainMiddleware(s.ConfigureGetHandler(), s.HTMLMiddleWare(s.RequireConnect(false), s.RequireAdmin())...))
	s.RegisterRouteHandler("POST "+RouteConfigure, ChainMiddleware(s.ConfigurePostHandler(), s.APIMiddleware(s.RequireConnect(true), s.RequireAdmin())...))

	// Document Server
	s.RegisterRouteHandler("GET "+RouteDownload, ChainMiddleware(s.DownloadHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteCallback, ChainMiddleware(s.callback.ServeHTTP, s.APIMiddleware()...))

	// Forge remote
	s.RegisterRouteHandler("POST "+RouteRemoteAuthorization, ChainMiddleware(s.RemoteAuthorizationHandler(), s.APIMiddleware(s.RequireForge())...))
	s.RegisterRouteHandler("POST "+RouteRemoteReferenceData, ChainMiddleware(s.RemoteReferenceDataHandler(), s.APIMiddleware(s.RequireForge())...))
	s.RegisterRouteHandler("GET "+RouteRemoteSettings, ChainMiddleware(s.RemoteSettingsGetHandler(), s.APIMiddleware(s.RequireForge(), s.RequireAdmin())...))
	s.RegisterRouteHandler("PUT "+RouteRemoteSettings, ChainMiddleware(s.RemoteSettingsPutHandler(), s.APIMiddleware(s.RequireForge(), s.RequireAdmin())...))
	s.RegisterRouteHandler("GET "+RouteRemoteEditor, ChainMiddleware(s.RemoteEditorHandler(), s.HTMLMiddleWare()...))
}
