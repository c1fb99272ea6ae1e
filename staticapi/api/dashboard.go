package api

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/arthur-debert/static-api/types"
)

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bulma@0.9.4/css/bulma.min.css">
    <title>Static API</title>
  </head>
  <body>
    <section class="section">
      <div class="container is-max-desktop">
        <section class="hero is-info mb-5">
          <div class="hero-body">
            <p class="title">Static-API</p>
            <p class="subtitle">fake api for testing</p>
          </div>
        </section>

        <p class="has-text-justified">A simple server emulating a basic REST API. Each collection is a JSON file in the data directory and supports create, read, update and delete. Collections that do not exist are created on first use.</p>

        <h3 class="title is-4 has-text-grey-dark mt-4">Collections</h3>
        <div class="content">
          <ul>
          {{- range .Collections}}
            <li class="columns is-gapless">
              <div class="column is-6"><a href="/api/{{.}}" class="has-text-link is-size-5">{{.}}</a></div>
              <div class="column is-6"><a href="/delete-collection/{{.}}" class="button is-danger is-small">delete</a></div>
            </li>
          {{- else}}
            <li>No collections yet</li>
          {{- end}}
          </ul>
        </div>
        <p><a href="/export" class="button is-small">download export</a></p>

        <p>JSON files are stored in <strong>{{.DataDir}}</strong></p>

        <h3 class="title is-4 has-text-grey-dark mt-4">Try something like</h3>
        <div class="box">
          <code class="is-family-code p-2">
            <p class="mb-4"><strong>curl -X GET</strong> {{.BaseURL}}/api/&lt;collection&gt;</p>
            <p class="mb-4"><strong>curl -X GET</strong> {{.BaseURL}}/api/&lt;collection&gt;?skip=10&amp;limit=5</p>
            <p class="mb-4"><strong>curl -X GET</strong> {{.BaseURL}}/api/&lt;collection&gt;/&lt;id&gt;</p>
            <p class="mb-4"><strong>curl -X POST</strong> -H "Content-Type: application/json" -d '{"field1":"value1"}' {{.BaseURL}}/api/&lt;collection&gt;</p>
            <p class="mb-4"><strong>curl -X PUT</strong> -H "Content-Type: application/json" -d '{"field1":"new_value1"}' {{.BaseURL}}/api/&lt;collection&gt;/&lt;id&gt;</p>
            <p class="mb-4"><strong>curl -X DELETE</strong> {{.BaseURL}}/api/&lt;collection&gt;/&lt;id&gt;</p>
          </code>
        </div>
      </div>
    </section>
  </body>
</html>
`))

type dashboardData struct {
	Collections []string
	DataDir     string
	BaseURL     string
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.Collections(r.Context())
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	var buf bytes.Buffer
	err = dashboardTemplate.Execute(&buf, dashboardData{
		Collections: names,
		DataDir:     h.cfg.DataDir,
		BaseURL:     scheme + "://" + r.Host,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// deleteCollectionRedirect backs the dashboard's delete links. A collection
// that is already gone still redirects.
func (h *Handler) deleteCollectionRedirect(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteCollection(r.Context(), r.PathValue("collection"))
	if err != nil && types.KindOf(err) != types.KindNotFound {
		h.writeStoreError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
