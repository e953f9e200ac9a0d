package meta

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/config"
	"github.com/stackernews/oauthd/scope"
)

// MetaRessource contains the .well-known endpoints
type MetaRessource struct {
	log      *zap.Logger
	metadata *authorizationServerMetadata
}

func (m *MetaRessource) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/oauth-authorization-server", m.authorizationServer)
	return r
}

func (m *MetaRessource) authorizationServer(w http.ResponseWriter, r *http.Request) {
	err := render.Render(w, r, m.metadata)
	if err != nil {
		m.log.Error("unable to render response", zap.Error(err))
	}
}

func NewMetaRessource(log *zap.Logger, cfg *config.ServerConfiguration) *MetaRessource {
	base := strings.TrimRight(cfg.PublicURL, "/")
	scopes := scope.All()
	supported := make([]string, len(scopes))
	for i, s := range scopes {
		supported[i] = string(s)
	}
	clientAuth := []string{"client_secret_basic", "client_secret_post", "none"}
	return &MetaRessource{log: log, metadata: &authorizationServerMetadata{
		Issuer:                                 base,
		AuthorizationEndpoint:                  base + "/oauth/authorize",
		TokenEndpoint:                          base + "/oauth/token",
		RevocationEndpoint:                     base + "/oauth/revoke",
		UserinfoEndpoint:                       base + "/oauth/userinfo",
		ScopesSupported:                        supported,
		ResponseTypesSupported:                 []string{"code"},
		ResponseModesSupported:                 []string{"query", "fragment", "form_post"},
		GrantTypesSupported:                    []string{"authorization_code", "refresh_token"},
		TokenEndpointAuthMethodsSupported:      clientAuth,
		RevocationEndpointAuthMethodsSupported: clientAuth,
		CodeChallengeMethodsSupported:          []string{"S256", "plain"},
	}}
}
