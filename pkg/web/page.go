package web

import (
	"encoding/json"
	"html/template"
	"net/http"

	"callassist/pkg/config"
	"callassist/pkg/prompt"
)

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="de">
<head>
<meta charset="utf-8">
<title>CallAssist</title>
<style>
  body { font-family: system-ui, sans-serif; max-width: 760px; margin: 2rem auto; padding: 0 1rem; }
  #log { border: 1px solid #ccc; border-radius: 6px; min-height: 280px; padding: 1rem; margin-bottom: 1rem; }
  .user { color: #1a4d8f; }
  .assistant { color: #1d6b3a; }
  .error { color: #a33; }
  form.chat { display: flex; gap: .5rem; }
  form.chat input[type=text] { flex: 1; }
  details { margin-bottom: 1rem; }
  textarea { width: 100%; min-height: 120px; }
  .controls { margin-top: 1rem; display: flex; gap: .5rem; }
</style>
</head>
<body>
<h1>CallAssist: {{.VariantLabel}}</h1>

<details>
  <summary>Configuration</summary>
  {{if .IsPhone}}
  <textarea id="patient">{{.PatientJSON}}</textarea>
  {{else}}
  <textarea id="evaluation" placeholder="Paste the scored evaluation JSON here"></textarea>
  {{end}}
  <div class="controls">
    <button id="start">Start session</button>
  </div>
</details>

<div id="log"></div>

<form class="chat" id="chatform">
  <input type="text" id="text" placeholder="Ihre Antwort..." autocomplete="off">
  <button type="submit">Senden</button>
</form>

<div class="controls">
  <button id="reset">Reset</button>
  <a href="/api/session/export" download="conversation.json"><button type="button">Download</button></a>
  <input type="file" id="upload" accept="application/json">
</div>

<script>
const log = document.getElementById('log');
function append(role, text) {
  const p = document.createElement('p');
  p.className = role;
  p.textContent = role + ': ' + text;
  log.appendChild(p);
}
async function post(url, body) {
  const resp = await fetch(url, {method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify(body)});
  return resp.json();
}
document.getElementById('start').addEventListener('click', async (e) => {
  e.preventDefault();
  const body = {};
  const patient = document.getElementById('patient');
  const evaluation = document.getElementById('evaluation');
  if (patient) { try { body.patient = JSON.parse(patient.value); } catch { append('error', 'patient config is not valid JSON'); return; } }
  if (evaluation) { body.evaluation = evaluation.value; }
  const out = await post('/api/session/start', body);
  if (out.error) { append('error', out.error); return; }
  log.innerHTML = '';
  append('assistant', out.reply);
});
document.getElementById('chatform').addEventListener('submit', async (e) => {
  e.preventDefault();
  const input = document.getElementById('text');
  const text = input.value.trim();
  if (!text) return;
  append('user', text);
  input.value = '';
  const out = await post('/api/session/message', {text});
  if (out.error) { append('error', out.error); return; }
  append('assistant', out.reply);
});
document.getElementById('reset').addEventListener('click', async () => {
  await post('/api/session/reset', {});
  log.innerHTML = '';
});
document.getElementById('upload').addEventListener('change', async (e) => {
  const file = e.target.files[0];
  if (!file) return;
  const resp = await fetch('/api/session/import', {method: 'POST', body: await file.text()});
  const out = await resp.json();
  if (out.error) { append('error', out.error); return; }
  log.innerHTML = '';
  for (const m of out.messages) append(m.role, m.content);
});
</script>
</body>
</html>`))

type indexData struct {
	VariantLabel string
	IsPhone      bool
	PatientJSON  string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{VariantLabel: "QA Feedback"}
	if s.variant == config.VariantPhone {
		data.VariantLabel = "Phone Assistant"
		data.IsPhone = true
		data.PatientJSON = defaultPatientJSON()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		s.logger.Error("render index", "error", err)
	}
}

func defaultPatientJSON() string {
	data, err := json.MarshalIndent(prompt.DefaultPatientConfig(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
