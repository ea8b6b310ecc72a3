package main

import (
	"fmt"
	"html/template"
	"io"
	"time"
)

type pageData struct {
	Title    string
	Endpoint string
}

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
  body { background: #000; color: #0f0; font: 14px "Courier New", monospace; margin: 32px; }
  h1 { font-size: 20px; margin: 0 0 16px; }
  table { border-collapse: collapse; width: 100%; }
  th, td { border: 1px solid #0f0; padding: 6px 10px; text-align: left; }
  a { color: #0f0; }
  #status { margin: 12px 0; }
</style>
<h1>{{.Title}}</h1>
<div id="status">loading...</div>
<table>
  <thead><tr><th>Name</th><th>Symbol</th><th>Created</th><th>Volume (SOL)</th><th>Mint</th></tr></thead>
  <tbody id="rows"></tbody>
</table>
<script>
fetch({{.Endpoint}})
  .then(function (r) { return r.json().then(function (body) { return { ok: r.ok, body: body }; }); })
  .then(function (res) {
    var status = document.getElementById("status");
    if (!res.ok) { status.textContent = res.body.error || "error"; return; }
    var rows = document.getElementById("rows");
    res.body.forEach(function (t) {
      var tr = document.createElement("tr");
      [t.name, t.symbol, new Date(t.createdAt).toLocaleString(), t.volume.toFixed(3)].forEach(function (v) {
        var td = document.createElement("td");
        td.textContent = v;
        tr.appendChild(td);
      });
      var td = document.createElement("td");
      var a = document.createElement("a");
      a.href = "https://solscan.io/token/" + encodeURIComponent(t.mint);
      a.textContent = t.mint;
      td.appendChild(a);
      tr.appendChild(td);
      rows.appendChild(tr);
    });
    status.textContent = res.body.length + " tokens";
  })
  .catch(function () { document.getElementById("status").textContent = "request failed"; });
</script>
`))

func renderPage(w io.Writer, lookback time.Duration) error {
	return pageTmpl.Execute(w, pageData{
		Title:    fmt.Sprintf("Pump.fun tokens (last %s)", lookback),
		Endpoint: "/api/tokens",
	})
}
