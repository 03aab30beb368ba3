package exportchromium

import (
	"encoding/json"
	"fmt"
)

const refAttribute = "data-export-ref"

// lookupFn resolves a ref to its element or throws.
const lookupFn = `function lookup(ref) {
  const el = document.querySelector('[` + refAttribute + `="' + CSS.escape(ref) + '"]');
  if (!el) { throw new Error('element ' + ref + ' not found'); }
  return el;
}`

const regionsScript = `function (attr) {
  const nodes = Array.from(document.querySelectorAll('[' + attr + ']'));
  return nodes.map(function (el, i) {
    const ref = 's' + i;
    el.setAttribute('` + refAttribute + `', ref);
    return { id: el.getAttribute(attr) || ('section-' + (i + 1)), ref: ref };
  });
}`

const measureScript = `function (ref) {
  ` + lookupFn + `
  const el = lookup(ref);
  const rect = el.getBoundingClientRect();
  return {
    width: rect.width,
    height: rect.height,
    scrollWidth: Math.max(el.scrollWidth, rect.width),
    scrollHeight: Math.max(el.scrollHeight, rect.height)
  };
}`

const containersScript = `function (ref, selectors) {
  ` + lookupFn + `
  const root = lookup(ref);
  const clipping = ['auto', 'scroll', 'hidden', 'clip', 'overlay'];
  function isContainer(el) {
    const inline = el.style;
    if (inline.overflow || inline.overflowX || inline.overflowY || inline.maxHeight) { return true; }
    for (const sel of (selectors || [])) {
      try { if (el.matches(sel)) { return true; } } catch (e) {}
    }
    const cs = window.getComputedStyle(el);
    if (clipping.indexOf(cs.overflow) >= 0 || clipping.indexOf(cs.overflowX) >= 0 || clipping.indexOf(cs.overflowY) >= 0) { return true; }
    return cs.maxHeight !== 'none';
  }
  const refs = [ref];
  let n = 0;
  root.querySelectorAll('*').forEach(function (el) {
    if (!isContainer(el)) { return; }
    let id = el.getAttribute('` + refAttribute + `');
    if (!id) {
      id = ref + '-c' + (n++);
      el.setAttribute('` + refAttribute + `', id);
    }
    refs.push(id);
  });
  return refs;
}`

const snapshotScript = `function (refs, props) {
  ` + lookupFn + `
  return refs.map(function (ref) {
    const el = lookup(ref);
    const properties = {};
    const priorities = {};
    props.forEach(function (p) {
      properties[p] = el.style.getPropertyValue(p);
      priorities[p] = el.style.getPropertyPriority(p);
    });
    return { ref: ref, properties: properties, priorities: priorities };
  });
}`

const applyScript = `function (refs, overrides) {
  ` + lookupFn + `
  refs.forEach(function (ref) {
    const el = lookup(ref);
    Object.keys(overrides).forEach(function (p) { el.style.setProperty(p, overrides[p], 'important'); });
  });
  return true;
}`

const restoreScript = `function (snapshots) {
  ` + lookupFn + `
  snapshots.forEach(function (snap) {
    let el;
    try { el = lookup(snap.ref); } catch (e) { return; }
    Object.keys(snap.properties).forEach(function (p) {
      const value = snap.properties[p];
      if (!value) { el.style.removeProperty(p); return; }
      el.style.setProperty(p, value, snap.priorities[p] || '');
    });
  });
  return true;
}`

// settleScript forces layout, waits for fonts and returns the stylesheets whose rules are not readable.
const settleScript = `async function () {
  void document.body.offsetHeight;
  if (document.fonts && document.fonts.ready) { await document.fonts.ready; }
  await new Promise(function (resolve) { requestAnimationFrame(function () { resolve(); }); });
  const blocked = [];
  Array.from(document.styleSheets).forEach(function (sheet) {
    try { void sheet.cssRules; } catch (e) { blocked.push(sheet.href || 'inline'); }
  });
  return blocked;
}`

const clipScript = `function (ref) {
  ` + lookupFn + `
  const el = lookup(ref);
  const rect = el.getBoundingClientRect();
  return {
    x: rect.left + window.scrollX,
    y: rect.top + window.scrollY,
    width: Math.max(el.scrollWidth, rect.width),
    height: Math.max(el.scrollHeight, rect.height)
  };
}`

// callExpression renders a function call with JSON encoded arguments.
func callExpression(fn string, args ...any) (string, error) {
	encoded := make([]byte, 0, 64)
	for i, arg := range args {
		data, err := json.Marshal(arg)
		if err != nil {
			return "", err
		}
		if i > 0 {
			encoded = append(encoded, ',')
		}
		encoded = append(encoded, data...)
	}
	return fmt.Sprintf("(%s)(%s)", fn, encoded), nil
}
