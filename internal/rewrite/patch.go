// Copyright 2026 Dominik Schlosser
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rewrite

import (
	"encoding/json"
	"strings"
	"text/template"

	"github.com/dominikschlosser/prefixgate/internal/route"
)

// PatchMarker identifies the injected script element.
const PatchMarker = "data-prefixgate-patch"

// patchTemplate is executed in the browser. It applies the same root-relative,
// absolute and protocol-relative mapping as the static passes to URLs built at runtime.
var patchTemplate = template.Must(template.New("patch").Parse(`
<script ` + PatchMarker + `>
(function () {
  var PROXY_BASE = {{.ProxyBase}};
  var PROXY_ORIGIN = {{.ProxyOrigin}};
  var TARGET_ORIGIN = {{.TargetOrigin}};
  var TARGET_URL = {{.TargetURL}};
  var BASE_PATH = {{.BasePath}};
  var GENERIC = {{.Generic}};
  var TARGET_HOST = new URL(TARGET_ORIGIN).host;
  var ATTRS = {{.Attributes}};
  var SKIP = /^(data:|blob:|javascript:|mailto:|tel:|about:|#)/i;

  function wrapGeneric(abs) {
    return PROXY_ORIGIN + '/proxy/' + encodeURIComponent(abs.href);
  }

  function wrap(abs) {
    if (GENERIC) return wrapGeneric(abs);
    var p = abs.pathname;
    if (BASE_PATH) {
      if (p !== BASE_PATH && p.indexOf(BASE_PATH + '/') !== 0) return wrapGeneric(abs);
      p = p.slice(BASE_PATH.length);
    }
    return PROXY_BASE + p + abs.search + abs.hash;
  }

  function fixUrl(u) {
    if (!u || typeof u !== 'string') return u;
    var v = u.trim();
    if (!v || SKIP.test(v) || v === PROXY_ORIGIN || v.indexOf(PROXY_ORIGIN + '/') === 0) return u;
    var abs;
    try {
      if (/^(https?:)?\/\//i.test(v)) {
        abs = new URL(v, TARGET_URL);
        return abs.host === TARGET_HOST ? wrap(abs) : u;
      }
      if (v.charAt(0) === '/') return wrap(new URL(v, TARGET_ORIGIN));
      if (GENERIC && !/^[a-z][a-z0-9+.\-]*:/i.test(v)) return wrap(new URL(v, TARGET_URL));
    } catch (e) {}
    return u;
  }

  function fixSocketUrl(u) {
    if (typeof u !== 'string') return u;
    var m = /^(wss?):\/\//i.exec(u);
    if (!m) return fixUrl(u).replace(/^http/i, 'ws');
    var fixed = fixUrl(u.replace(/^ws/i, 'http'));
    return fixed.replace(/^http/i, 'ws');
  }

  function fixStyle(el) {
    if (!el.style || !el.style.cssText) return;
    var css = el.style.cssText;
    var out = css.replace(/url\((['"]?)([^'")]+)\1\)/gi, function (m, q, ref) {
      var fixed = fixUrl(ref);
      return fixed === ref ? m : 'url("' + fixed + '")';
    });
    if (out !== css) el.style.cssText = out;
  }

  var setAttr = Element.prototype.setAttribute;

  function fixElement(el) {
    if (!el || el.nodeType !== 1) return;
    for (var i = 0; i < ATTRS.length; i++) {
      var v = el.getAttribute(ATTRS[i]);
      if (v) {
        var fixed = fixUrl(v);
        if (fixed !== v) setAttr.call(el, ATTRS[i], fixed);
      }
    }
    fixStyle(el);
  }

  function fixTree(node) {
    if (!node || node.nodeType !== 1) return;
    fixElement(node);
    if (node.querySelectorAll) {
      var els = node.querySelectorAll('[' + ATTRS.join('],[') + '],[style]');
      for (var i = 0; i < els.length; i++) fixElement(els[i]);
    }
  }

  var origFetch = window.fetch;
  if (origFetch) {
    window.fetch = function (resource, init) {
      if (typeof resource === 'string') {
        resource = fixUrl(resource);
      } else if (typeof URL !== 'undefined' && resource instanceof URL) {
        resource = fixUrl(resource.href);
      } else if (typeof Request !== 'undefined' && resource instanceof Request) {
        var fixed = fixUrl(resource.url);
        if (fixed !== resource.url) resource = new Request(fixed, resource);
      }
      return origFetch.call(this, resource, init);
    };
  }

  var origOpen = XMLHttpRequest.prototype.open;
  XMLHttpRequest.prototype.open = function (method, url) {
    var args = Array.prototype.slice.call(arguments);
    if (args.length > 1) args[1] = fixUrl(String(url));
    return origOpen.apply(this, args);
  };

  var OrigWebSocket = window.WebSocket;
  if (OrigWebSocket) {
    var PatchedWebSocket = function (url, protocols) {
      var fixed = fixSocketUrl(String(url));
      return protocols === undefined ? new OrigWebSocket(fixed) : new OrigWebSocket(fixed, protocols);
    };
    PatchedWebSocket.prototype = OrigWebSocket.prototype;
    PatchedWebSocket.CONNECTING = OrigWebSocket.CONNECTING;
    PatchedWebSocket.OPEN = OrigWebSocket.OPEN;
    PatchedWebSocket.CLOSING = OrigWebSocket.CLOSING;
    PatchedWebSocket.CLOSED = OrigWebSocket.CLOSED;
    window.WebSocket = PatchedWebSocket;
  }

  Element.prototype.setAttribute = function (name, value) {
    if (ATTRS.indexOf(String(name).toLowerCase()) !== -1 && typeof value === 'string') {
      value = fixUrl(value);
    }
    return setAttr.call(this, name, value);
  };

  var observer = new MutationObserver(function (mutations) {
    for (var i = 0; i < mutations.length; i++) {
      var m = mutations[i];
      if (m.type === 'attributes') {
        fixElement(m.target);
        continue;
      }
      for (var j = 0; j < m.addedNodes.length; j++) fixTree(m.addedNodes[j]);
    }
  });

  function start() {
    fixTree(document.documentElement);
    observer.observe(document.documentElement, {
      childList: true,
      subtree: true,
      attributes: true,
      attributeFilter: ATTRS.concat(['style'])
    });
  }

  if (document.readyState === 'loading') {
    document.addEventListener('DOMContentLoaded', start);
  } else {
    start();
  }
})();
</script>`))

type patchData struct {
	ProxyBase    string
	ProxyOrigin  string
	TargetOrigin string
	TargetURL    string
	BasePath     string
	Generic      bool
	Attributes   string
}

// PatchScript renders the client-side patch for p. All substituted values are
// JSON-encoded so they are valid, HTML-safe JavaScript literals.
func PatchScript(p *Plan) (string, error) {
	data := patchData{Generic: p.Mode == route.ModeGeneric}
	for dst, v := range map[*string]any{
		&data.ProxyBase:    p.ProxyBaseURL,
		&data.ProxyOrigin:  p.ProxyOrigin,
		&data.TargetOrigin: p.TargetOrigin(),
		&data.TargetURL:    p.Target.String(),
		&data.BasePath:     p.basePath,
		&data.Attributes:   URLAttributes,
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		*dst = string(b)
	}

	var b strings.Builder
	if err := patchTemplate.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
