package routes

import (
	"bytes"
	"html/template"

	"github.com/gofiber/fiber/v2"

	"github.com/helloneovia/immocible-sub000/internal/config"
)

const docsIndexHTML = `<!doctype html>
<html lang="fr">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ .Title }}</title>
  <style>
    body { margin: 0 auto; max-width: 860px; padding: 32px 20px; font-family: Georgia, serif; color: #132019; }
    h1 { margin-bottom: 4px; }
    p.lead { color: #536258; margin-top: 0; }
    table { border-collapse: collapse; width: 100%; margin-top: 24px; }
    th, td { text-align: left; padding: 8px 10px; border-bottom: 1px solid #d8ddd6; }
    code { background: #0f172a; color: #e2e8f0; padding: 2px 6px; border-radius: 4px; font-size: 0.9em; }
  </style>
</head>
<body>
  <h1>{{ .Title }}</h1>
  <p class="lead">Endpoints protégés : en-tête <code>Authorization: Bearer &lt;token&gt;</code>.</p>
  <table>
    <tr><th>Méthode</th><th>Chemin</th><th>Description</th></tr>
    {{ range .Endpoints }}
    <tr><td><code>{{ .Method }}</code></td><td><code>{{ .Path }}</code></td><td>{{ .Summary }}</td></tr>
    {{ end }}
  </table>
</body>
</html>`

type docsEndpoint struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Summary string `json:"summary"`
}

var docsEndpoints = []docsEndpoint{
	{"POST", "/api/auth/register", "Créer un compte acquéreur ou agence"},
	{"POST", "/api/auth/login", "Obtenir un jeton JWT"},
	{"GET", "/api/auth/me", "Profil du compte connecté"},
	{"PUT", "/api/v1/searches", "Enregistrer la recherche active (acquéreur)"},
	{"GET", "/api/v1/searches", "Lire la recherche active"},
	{"DELETE", "/api/v1/searches", "Désactiver la recherche"},
	{"POST", "/api/v1/listings", "Publier une annonce (agence)"},
	{"GET", "/api/v1/listings", "Annonces de l'agence"},
	{"PUT", "/api/v1/listings/:id", "Modifier une annonce"},
	{"GET", "/api/v1/matches", "Correspondances du compte connecté"},
	{"GET", "/api/v1/buyers/:id/profile", "Profil acquéreur, coordonnées masquées avant déblocage"},
	{"POST", "/api/v1/unlocks/start", "Démarrer le paiement de déblocage"},
	{"POST", "/api/v1/unlocks/verify", "Vérifier un paiement de déblocage (idempotent)"},
	{"POST", "/api/v1/payments/:sessionID/refund", "Rembourser un paiement"},
	{"GET", "/api/v1/conversations", "Conversations du compte connecté"},
	{"POST", "/api/v1/conversations", "Ouvrir une conversation avec un acquéreur (agence)"},
	{"GET", "/api/v1/conversations/:id/messages", "Messages paginés d'une conversation"},
	{"POST", "/api/v1/conversations/:id/messages", "Envoyer un message (contenu filtré)"},
	{"GET", "/api/v1/ws", "WebSocket de messagerie temps réel"},
}

// registerDocsRoutes serves a route index in development only. The page is
// rendered once at startup.
func registerDocsRoutes(app fiber.Router, cfg *config.Config) error {
	if !cfg.DocsEnabled() {
		return nil
	}

	tmpl, err := template.New("docs").Parse(docsIndexHTML)
	if err != nil {
		return err
	}

	var rendered bytes.Buffer
	err = tmpl.Execute(&rendered, struct {
		Title     string
		Endpoints []docsEndpoint
	}{
		Title:     "Immocible API",
		Endpoints: docsEndpoints,
	})
	if err != nil {
		return err
	}
	page := rendered.Bytes()

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(page)
	})
	app.Get("/docs/endpoints.json", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"endpoints": docsEndpoints})
	})

	return nil
}
