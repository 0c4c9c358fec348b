package server

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog/hlog"
)

type navGroup struct {
	Name  string
	Items []itemState
}

type shellData struct {
	Title   string
	Current string
	Groups  []navGroup
}

// groups keeps sidebar order; consecutive items share a group heading.
func groups(items []itemState) []navGroup {
	var out []navGroup
	for _, item := range items {
		if len(out) == 0 || out[len(out)-1].Name != item.Group {
			out = append(out, navGroup{Name: item.Group})
		}
		out[len(out)-1].Items = append(out[len(out)-1].Items, item)
	}
	return out
}

// The shell never contains section content; the script fetches it.
var shellTemplate = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body>
<aside class="sidebar">
  <h1>{{.Title}}</h1>
  <nav>
  {{- range .Groups}}
    {{- if .Name}}<div class="nav-group">{{.Name}}</div>{{end}}
    {{- range .Items}}
    <a class="nav-item{{if .Active}} active{{end}}" href="#{{.ID}}" data-section="{{.ID}}">{{.Title}}</a>
    {{- end}}
  {{- end}}
  </nav>
  <button id="clear-cache-btn" type="button">Clear cache</button>
  <span id="cache-status" class="cache-status"></span>
</aside>
<main class="main">
  <div id="content-container" data-current="{{.Current}}"></div>
</main>
<script>
(function () {
  var container = document.getElementById('content-container');
  var items = document.querySelectorAll('.nav-item');
  function render(state) {
    container.innerHTML = state.content || '';
    items.forEach(function (item) {
      item.classList.toggle('active', item.getAttribute('data-section') === state.current);
    });
  }
  function post(url, body) {
    return fetch(url, {method: 'POST', headers: {'Content-Type': 'application/json'}, body: body})
      .then(function (res) { return res.json(); });
  }
  function navigate(id, push) {
    return post('/api/navigate/' + encodeURIComponent(id)).then(function (state) {
      render(state);
      if (push) { history.pushState(null, '', '#' + id); }
    });
  }
  items.forEach(function (item) {
    item.addEventListener('click', function (e) {
      e.preventDefault();
      navigate(item.getAttribute('data-section'), true);
    });
  });
  window.addEventListener('popstate', function () {
    navigate(location.hash.slice(1) || '{{.Current}}', false);
  });
  document.addEventListener('keydown', function (e) {
    if (e.key !== 'Escape' && e.key !== 'Home') { return; }
    post('/api/keys', JSON.stringify({key: e.key, ctrl: e.ctrlKey, meta: e.metaKey})).then(function (res) {
      if (res.handled) { e.preventDefault(); render(res); history.pushState(null, '', '#' + res.current); }
    });
  });
  document.getElementById('clear-cache-btn').addEventListener('click', function () {
    var status = document.getElementById('cache-status');
    status.textContent = 'Clearing...';
    fetch('/api/cache', {method: 'DELETE'})
      .then(function () { return fetch('/api/content'); })
      .then(function (res) { return res.text(); })
      .then(function (html) { container.innerHTML = html; status.textContent = 'Cache cleared!'; })
      .catch(function () { status.textContent = 'Error'; })
      .then(function () { setTimeout(function () { status.textContent = ''; }, 2000); });
  });
  var target = location.hash.slice(1);
  if (target) { navigate(target, false); } else { fetch('/api/content').then(function (res) { return res.text(); }).then(function (html) { container.innerHTML = html; }); }
})();
</script>
</body>
</html>
`))

func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	st := s.snapshot(false)
	data := shellData{
		Title:   s.cfg.Title,
		Current: st.Current,
		Groups:  groups(st.Items),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := shellTemplate.Execute(w, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Could not render shell")
	}
}
