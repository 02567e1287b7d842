package web

// views.go holds the server-rendered pages as templ components. The explorer
// page is a thin client of the JSON API; the profile page renders a report.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/healthdash/internal/core"
	"github.com/JonMunkholm/healthdash/internal/reference"
)

const pageTitle = "Health in well-being economy analysis tool"

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;max-width:1100px}
label{display:block;margin:.5rem 0 .2rem;font-weight:600}
select,input{min-width:16rem}
table{border-collapse:collapse;margin:1rem 0}
td,th{border:1px solid #ccc;padding:.25rem .5rem;text-align:right}
td:first-child,th:first-child{text-align:left}
.error{color:#a00}.muted{color:#666}
pre{white-space:pre-wrap}`

// dashboardData feeds the explorer page.
type dashboardData struct {
	Sources    []core.SourceInfo
	Indicators []reference.Indicator
	Countries  []reference.Country
	Groups     []string
}

// layout wraps body in the page shell.
func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title><style>%s</style></head><body>`,
			templ.EscapeString(title), pageStyle); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

func dashboardPage(d dashboardData) templ.Component {
	return layout(pageTitle, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		catalog, err := json.Marshal(d.Indicators)
		if err != nil {
			return err
		}

		var b writer
		b.printf(`<h1>%s</h1>`, templ.EscapeString(pageTitle))

		b.printf(`<label for="source">Datasource</label><select id="source">`)
		for _, src := range d.Sources {
			b.printf(`<option value="%s">%s</option>`, templ.EscapeString(src.Tag), templ.EscapeString(src.Label))
		}
		b.printf(`</select>`)
		b.printf(`<label for="indicator">Indicator</label><select id="indicator"></select>`)

		b.printf(`<label for="group">Country group</label><select id="group"><option value="">All</option>`)
		for _, g := range d.Groups {
			b.printf(`<option>%s</option>`, templ.EscapeString(g))
		}
		b.printf(`</select>`)

		b.printf(`<label for="countries">Countries</label><select id="countries" multiple size="8">`)
		for _, c := range d.Countries {
			b.printf(`<option value="%s">%s</option>`, templ.EscapeString(c.Code), templ.EscapeString(c.ShortName))
		}
		b.printf(`</select>`)
		b.printf(`<label>Years</label><input id="from" type="number" placeholder="from"> <input id="to" type="number" placeholder="to">`)
		b.printf(`<div id="dims"></div><p><button id="go">Explore</button> <button id="profile">Country profile</button></p>`)
		b.printf(`<div id="out" class="muted">Select to proceed...</div>`)
		b.printf(`<script>const catalog=%s;%s</script>`, catalog, dashboardScript)

		_, err = w.Write(b.buf)
		return err
	}))
}

// dashboardScript drives the explorer page through /api/explore.
const dashboardScript = `
const $=id=>document.getElementById(id);
function fillIndicators(){const s=$("source").value;$("indicator").innerHTML="";
for(const i of catalog.filter(i=>i.datasource===s)){const o=document.createElement("option");o.value=i.code;o.textContent=i.area+" - "+i.short_name;$("indicator").append(o)}}
function esc(s){const d=document.createElement("div");d.textContent=s;return d.innerHTML}
function table(p){if(!p||!p.rows)return"";let h="<table><tr>"+p.index.map(c=>"<th>"+esc(c)+"</th>").join("")+p.years.map(y=>"<th>"+y+"</th>").join("")+"</tr>";
for(const r of p.rows){h+="<tr>"+r.key.map(k=>"<td>"+esc(k)+"</td>").join("")+r.values.map(v=>"<td>"+(v===null?"":v.toFixed(2))+"</td>").join("")+"</tr>"}return h+"</table>"}
async function explore(){const q=new URLSearchParams({indicator:$("indicator").value,group:$("group").value,from:$("from").value,to:$("to").value});
const cs=[...$("countries").selectedOptions].map(o=>o.value);if(cs.length)q.set("countries",cs.join(","));
for(const s of document.querySelectorAll("#dims select"))q.set("dim."+s.name,s.value);
const res=await fetch("/api/explore?"+q);const body=await res.json();
if(!res.ok){$("out").innerHTML="<p class=error>"+esc(body.message)+" ("+esc(body.code)+")</p>";return}
$("dims").innerHTML=(body.dimensions||[]).map(d=>"<label>"+esc(d.name)+"</label><select name=\""+esc(d.name)+"\">"+d.values.map(v=>"<option"+(body.applied_dimensions[d.name]===v?" selected":"")+">"+esc(v)+"</option>").join("")+"</select>").join("");
if(!$("from").value){$("from").value=body.from_year;$("to").value=body.to_year}
let h="<h2>"+esc(body.indicator.long_name)+"</h2>";
if(body.empty){h+="<p class=error>"+esc(body.message)+"</p>"}
for(const s of body.series||[]){h+=(s.label?"<h3>"+(s.label==="F"?"Female":"Male")+"</h3>":"")+table(s.pivot)}
if(body.data_link)h+="<a target=_blank rel=noopener href=\""+esc(body.data_link)+"\">Data link...</a>";
$("out").innerHTML=h}
$("source").onchange=()=>{fillIndicators();$("dims").innerHTML="";$("from").value="";$("to").value=""};
$("indicator").onchange=()=>{$("dims").innerHTML="";$("from").value="";$("to").value=""};
$("go").onclick=explore;
$("profile").onclick=()=>{const c=$("countries").value;if(c)location.href="/profile/"+encodeURIComponent(c)};
fillIndicators();`

func profilePage(rep *core.ProfileReport) templ.Component {
	title := "Country profile: " + rep.Country.ShortName
	return layout(title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b writer
		b.printf(`<h1>%s</h1>`, templ.EscapeString(title))
		b.printf(`<p class="muted">Generated %s. <a href="/api/profile/%s/export">Download workbook</a></p>`,
			rep.GeneratedAt.Format("2006-01-02 15:04 MST"), url.PathEscape(rep.Country.Code))

		for _, s := range rep.Sections {
			b.printf(`<h2>%s</h2>`, templ.EscapeString(s.Title()))
			if s.Error != nil {
				b.printf(`<p class="error">%s (%s)</p>`, templ.EscapeString(s.Error.Message), templ.EscapeString(s.Error.Code))
			} else {
				b.pivot(s.Pivot)
			}
			if s.DataLink != "" {
				b.printf(`<a target="_blank" rel="noopener" href="%s">Data link...</a>`, templ.EscapeString(s.DataLink))
			}
		}

		switch {
		case rep.NarrativeError != "":
			b.printf(`<h2>Report</h2><p class="error">%s</p>`, templ.EscapeString(rep.NarrativeError))
		case rep.Narrative.Analysis != "":
			b.printf(`<h2>Data report</h2><pre>%s</pre>`, templ.EscapeString(rep.Narrative.Analysis))
			b.printf(`<h2>Report</h2><pre>%s</pre>`, templ.EscapeString(rep.Narrative.Advice))
		}

		_, err := w.Write(b.buf)
		return err
	}))
}

func errorPage(msg core.UserMessage) templ.Component {
	return layout(pageTitle, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<p class="error">%s (Code: %s)</p><p>%s</p><p><a href="/">Back</a></p>`,
			templ.EscapeString(msg.Message), templ.EscapeString(msg.Code), templ.EscapeString(msg.Action))
		return err
	}))
}

// writer collects page output before it is written in one go.
type writer struct {
	buf []byte
}

func (b *writer) printf(format string, args ...any) {
	b.buf = fmt.Appendf(b.buf, format, args...)
}

func (b *writer) pivot(p *core.PivotTable) {
	if p == nil {
		return
	}
	b.printf(`<table><tr>`)
	for _, name := range p.Index {
		b.printf(`<th>%s</th>`, templ.EscapeString(name))
	}
	for _, y := range p.Years {
		b.printf(`<th>%d</th>`, y)
	}
	b.printf(`</tr>`)
	for _, row := range p.Rows {
		b.printf(`<tr>`)
		for _, k := range row.Key {
			b.printf(`<td>%s</td>`, templ.EscapeString(k))
		}
		for _, v := range row.Values {
			cell := ""
			if v.Valid {
				cell = strconv.FormatFloat(v.Float64, 'f', 2, 64)
			}
			b.printf(`<td>%s</td>`, cell)
		}
		b.printf(`</tr>`)
	}
	b.printf(`</table>`)
}
