package api

import (
	"html/template"
	"net/http"
)

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>Project Lend</title>
	<style>
		body { font-family: sans-serif; max-width: 720px; margin: 2em auto; }
		img { width: 100%; border: 1px solid #ccc; }
		#status { padding: 0.5em 0; color: #333; }
		table { width: 100%; border-collapse: collapse; }
		td, th { text-align: left; padding: 0.3em; border-bottom: 1px solid #eee; }
	</style>
</head>
<body>
	<h1>Project Lend</h1>
	<div id="status">Connecting...</div>
	<img src="/api/stream" alt="drop zone">
	<h2>Recent donations</h2>
	<table id="donations"><tr><th>#</th><th>Item</th><th>Category</th><th>Time</th></tr></table>
	<script>
		async function refresh() {
			const state = await (await fetch('/api/state')).json();
			document.getElementById('status').textContent = state.status_text;
			const donations = await (await fetch('/api/donations/recent?limit=10')).json();
			const rows = donations.map(d =>
				'<tr><td>' + d.id + '</td><td>' + d.item_name + '</td><td>' +
				d.category + '</td><td>' + d.timestamp + '</td></tr>').join('');
			document.getElementById('donations').innerHTML =
				'<tr><th>#</th><th>Item</th><th>Category</th><th>Time</th></tr>' + rows;
		}
		setInterval(refresh, 2000);
		refresh();
	</script>
</body>
</html>
`))

func (app *App) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	if err := dashboardTmpl.Execute(w, nil); err != nil {
		http.Error(w, "Error rendering dashboard", http.StatusInternalServerError)
	}
}
