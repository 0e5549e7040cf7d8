package live

import (
	"encoding/json"
	"strings"
)

// clientScript returns the browser side of the live protocol: it forwards
// events of elements carrying a hydration id and swaps in rendered bodies.
func clientScript(socketPath, route string) string {
	path, _ := json.Marshal(socketPath + "?page=")
	name, _ := json.Marshal(route)
	return strings.NewReplacer("__PATH__", string(path), "__PAGE__", string(name)).Replace(clientScriptTemplate)
}

const clientScriptTemplate = `<script id="vbind-live">
(function() {
    'use strict';

    var ws = null;
    var queue = [];
    var reconnectDelay = 1000;
    var maxReconnectDelay = 30000;

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        ws = new WebSocket(protocol + '//' + location.host + __PATH__ + encodeURIComponent(__PAGE__));

        ws.onopen = function() {
            reconnectDelay = 1000;
            while (queue.length) {
                ws.send(queue.shift());
            }
        };

        ws.onmessage = function(e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }
            switch (msg.type) {
                case 'render':
                    render(msg.html);
                    break;
                case 'error':
                    console.error('[vbind]', msg.code || '', msg.error);
                    break;
                case 'reload':
                    location.reload();
                    break;
                case 'result':
                    document.dispatchEvent(new CustomEvent('vbind:result', { detail: msg }));
                    break;
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
                connect();
            }, reconnectDelay);
        };

        ws.onerror = function() {
            ws.close();
        };
    }

    function send(msg) {
        var data = JSON.stringify(msg);
        if (ws && ws.readyState === 1) {
            ws.send(data);
        } else {
            queue.push(data);
        }
    }

    function render(html) {
        var active = document.activeElement;
        var hid = active && active.getAttribute && active.getAttribute('data-hid');
        var start = active && active.selectionStart;
        var end = active && active.selectionEnd;
        var script = document.getElementById('vbind-live');
        document.body.innerHTML = html;
        if (script) {
            document.body.appendChild(script);
        }
        if (hid) {
            var el = document.querySelector('[data-hid="' + hid + '"]');
            if (el) {
                el.focus();
                if (typeof start === 'number' && el.setSelectionRange) {
                    el.setSelectionRange(start, end);
                }
            }
        }
    }

    var composing = false;
    document.addEventListener('compositionstart', function(e) {
        composing = true;
        forward(e);
    }, true);
    document.addEventListener('compositionend', function(e) {
        composing = false;
        forward(e);
    }, true);

    ['click', 'input', 'change', 'keydown', 'keyup', 'submit', 'focus', 'blur'].forEach(function(type) {
        document.addEventListener(type, function(e) {
            if (type === 'submit') {
                e.preventDefault();
            }
            forward(e);
        }, true);
    });

    function forward(e) {
        var el = e.target;
        while (el && el.getAttribute && !el.getAttribute('data-hid')) {
            el = el.parentNode;
        }
        if (!el || !el.getAttribute) {
            return;
        }
        var msg = { type: 'event', hid: el.getAttribute('data-hid'), event: e.type, isComposing: composing };
        if ('value' in e.target) {
            msg.value = String(e.target.value);
        }
        if (e.data) {
            msg.data = e.data;
        }
        if (e.key) {
            msg.key = e.key;
        }
        if ('checked' in e.target) {
            msg.checked = !!e.target.checked;
        }
        send(msg);
    }

    window.vbind = {
        call: function(name) {
            send({ type: 'call', name: name, args: Array.prototype.slice.call(arguments, 1) });
        }
    };

    connect();
})();
</script>`
