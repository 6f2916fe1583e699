package web

import "net/http"

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Countdown</title>
    <style>
        body { font-family: sans-serif; max-width: 720px; margin: 40px auto; padding: 20px; }
        body.dark { background: #1e1e1e; color: #eee; }
        h2 { margin-bottom: 4px; }
        .timer { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid #ddd; }
        button { background: #007bff; color: white; border: none; padding: 4px 10px; border-radius: 4px; cursor: pointer; }
        button:hover { background: #0056b3; }
        progress { width: 100%; }
    </style>
</head>
<body>
    <h1>Countdown</h1>
    <div>
        <button onclick="post('/api/timers/start-all')">Start all</button>
        <button onclick="post('/api/timers/pause-all')">Pause all</button>
    </div>
    <div id="groups">Loading...</div>
    <script>
        function fmt(s) {
            const m = Math.floor(s / 60), r = s % 60;
            return m + ':' + String(r).padStart(2, '0');
        }

        async function post(url) {
            await fetch(url, {method: 'POST'});
            await load();
        }

        async function load() {
            const theme = await (await fetch('/api/theme')).json();
            document.body.className = theme.theme === 'dark' ? 'dark' : '';

            const groups = await (await fetch('/api/groups')).json();
            const root = document.getElementById('groups');
            root.innerHTML = '';
            for (const g of groups) {
                const section = document.createElement('section');
                const title = document.createElement('h2');
                title.textContent = g.name + ' (' + g.completed + '/' + g.timers.length + ')';
                section.appendChild(title);
                const bar = document.createElement('progress');
                bar.max = 1;
                bar.value = g.progress;
                section.appendChild(bar);
                for (const t of g.timers) {
                    const row = document.createElement('div');
                    row.className = 'timer';
                    const label = document.createElement('span');
                    label.textContent = t.name + ' ' + fmt(t.remaining_duration) + ' ' + t.status;
                    row.appendChild(label);
                    const action = t.status === 'Running' ? 'pause' : (t.status === 'Completed' ? 'reset' : 'start');
                    const btn = document.createElement('button');
                    btn.textContent = action;
                    btn.onclick = () => post('/api/timers/' + t._id + '/' + action);
                    row.appendChild(btn);
                    section.appendChild(row);
                }
                root.appendChild(section);
            }
        }

        load();
        setInterval(load, 1000);
    </script>
</body>
</html>`
