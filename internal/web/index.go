package web

// indexHTML is the single-page monitoring UI. It talks to the REST API and
// renders per-file progress from the websocket stream.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Image Compressor</title>
<style>
  body { font-family: sans-serif; max-width: 720px; margin: 2em auto; }
  input, button { font-size: 1em; padding: 0.3em; }
  input[type=text] { width: 100%; box-sizing: border-box; margin: 0.2em 0; }
  #log { border: 1px solid #ccc; padding: 0.5em; height: 20em; overflow-y: scroll;
         font-family: monospace; font-size: 0.85em; white-space: pre-wrap; }
  .error { color: #b00; }
</style>
</head>
<body>
<h1>Image Compressor</h1>
<label>Source directory <input type="text" id="source"></label>
<label>Target directory <input type="text" id="target"></label>
<label>Quality <input type="number" id="quality" min="1" max="100" value="80"></label>
<label>Size ratio <input type="number" id="ratio" min="0.01" max="1" step="0.01" value="0.8"></label>
<label><input type="checkbox" id="dryrun"> Dry run</label>
<p>
  <button onclick="startRun()">Compress</button>
  <button onclick="stopRun()">Stop</button>
</p>
<div id="log"></div>
<script>
const log = document.getElementById('log');
function append(line, cls) {
  const div = document.createElement('div');
  if (cls) div.className = cls;
  div.textContent = line;
  log.appendChild(div);
  log.scrollTop = log.scrollHeight;
}

const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
ws.onmessage = (ev) => {
  const msg = JSON.parse(ev.data);
  if (msg.type === 'file_done') {
    const d = msg.data;
    append(d.action + '  ' + d.input_path + (d.message ? '  (' + d.message + ')' : ''),
           d.action === 'error' ? 'error' : '');
  } else if (msg.type === 'run_completed') {
    append(msg.data.statistics);
  } else if (msg.type === 'run_error') {
    append('run failed: ' + msg.data.error, 'error');
  } else {
    append('[' + msg.type + ']');
  }
};

function startRun() {
  fetch('/api/compress', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({
      source_directory: document.getElementById('source').value,
      target_directory: document.getElementById('target').value,
      quality: parseFloat(document.getElementById('quality').value),
      size_ratio: parseFloat(document.getElementById('ratio').value),
      dry_run: document.getElementById('dryrun').checked,
    }),
  }).then(r => r.json()).then(r => {
    if (!r.success) append(r.error, 'error');
  });
}

function stopRun() {
  fetch('/api/stop', {method: 'POST'});
}
</script>
</body>
</html>
`
