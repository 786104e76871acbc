/*
Copyright © 2021 the NcMagics authors.
This file is part of NcMagics.

NcMagics is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

NcMagics is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with NcMagics.  If not, see <http://www.gnu.org/licenses/>.
*/

package ncmagicsutil

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ctessum/gobra"
	"github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Address is where StartWebServer listens.
const Address = "localhost:7171"

// inputFiles are the options that name NetCDF or auxiliary input files.
// The web form lets the user upload a file for each of them.
var inputFiles = []string{
	"config", "coastlines", "colormaps",
	"file", "tfile", "gh", "u", "temperature",
	"prev-gh", "prev-u", "prev-temperature",
}

// productInfo describes one subcommand for the web form.
type productInfo struct {
	Name   string   `json:"name"`
	Short  string   `json:"short"`
	Inputs []string `json:"inputs"`
}

// mapInfo is an image in the output directory.
type mapInfo struct {
	Name     string    `json:"name"`
	URL      string    `json:"url"`
	Modified time.Time `json:"modified"`
}

// products lists the subcommands of root with their own options.
func products(root *cobra.Command) []productInfo {
	var o []productInfo
	for _, cmd := range root.Commands() {
		if cmd.Name() == "version" || cmd.Name() == "help" || !cmd.IsAvailableCommand() {
			continue
		}
		p := productInfo{Name: cmd.Name(), Short: cmd.Short, Inputs: []string{}}
		cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
			p.Inputs = append(p.Inputs, f.Name)
		})
		o = append(o, p)
	}
	sort.Slice(o, func(i, j int) bool { return o[i].Name < o[j].Name })
	return o
}

// outputMaps lists the PNG images in dir, newest first.
func outputMaps(dir string) ([]mapInfo, error) {
	if IsBlob(dir) {
		return nil, fmt.Errorf("ncmagics: cannot list maps in blob storage location %s", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ncmagics: listing maps: %v", err)
	}
	o := []mapInfo{}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return nil, err
		}
		o = append(o, mapInfo{Name: e.Name(), URL: "/maps/" + e.Name(), Modified: fi.ModTime()})
	}
	sort.SliceStable(o, func(i, j int) bool {
		if !o[i].Modified.Equal(o[j].Modified) {
			return o[i].Modified.After(o[j].Modified)
		}
		return o[i].Name < o[j].Name
	})
	return o, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// registerHandlers adds the configuration, product and map endpoints
// of the web form to mux. outDir returns the current output directory.
func registerHandlers(mux *http.ServeMux, log logrus.FieldLogger, outDir func() string) {
	mux.HandleFunc("/setConfig", func(w http.ResponseWriter, r *http.Request) {
		Root.PersistentFlags().Set("config", r.FormValue("config"))
		if err := setConfig(); err != nil {
			log.WithField("config", r.FormValue("config")).Debug(err)
			// The form marks the field red on this status.
			http.Error(w, err.Error(), http.StatusNoContent)
			return
		}
		config := make(map[string]interface{})
		for _, option := range options {
			config[option.name] = Cfg.Get(option.name)
		}
		writeJSON(w, config)
	})

	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, products(Root))
	})

	mux.HandleFunc("/maps", func(w http.ResponseWriter, r *http.Request) {
		m, err := outputMaps(outDir())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, m)
	})

	mux.HandleFunc("/maps/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/maps/")
		if name == "" || filepath.Base(name) != name || !strings.EqualFold(filepath.Ext(name), ".png") {
			http.NotFound(w, r)
			return
		}
		dir := outDir()
		if IsBlob(dir) {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		http.ServeFile(w, r, filepath.Join(dir, name))
	})
}

const webTemplate = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>NcMagics</title>
	<style>
		html, body {padding: 0; margin: 2% 0; font-family: sans-serif;}
		.container { max-width: 900px; margin: 0 auto; padding: 10px; }
		div[id^="gobra-"] blockquote { border-left: 3px solid #bbb; margin: .3em; color: #333; padding-left: 5px; font-size: 75%; }
		div[id^="gobra-"] code { font-weight: bold; }
		div[id^="gobra-"] input { font-family: monospace; margin-left: .2em; width: 50%; outline:none; }
		.red-border{ border: 1px solid #c35; }
		.green-border{ border: 1px solid #3c5; }
		#maps figure { display: inline-block; margin: 4px; }
		#maps img { width: 280px; border: 1px solid #ccc; }
		#maps figcaption { font-size: 75%; }
	</style>
</head>
<body>
<div class="container">
	<h1>NcMagics</h1>
	<p>Choose a product, give it the forecast files it reads, and run it.
	The maps in the output directory are shown below the form.</p>
	<ul id="products"></ul>
	<div>
		{{.}}
	</div>
	<h2>Maps <button id="refresh">refresh</button></h2>
	<div id="maps"></div>
</div>

<script>
fetch("/products").then(res => res.json()).then(list => {
	let ul = document.getElementById("products");
	for (let p of list) {
		let li = document.createElement("li");
		li.textContent = p.name + ": " + p.short + (p.inputs.length ? " (--" + p.inputs.join(", --") + ")" : "");
		ul.appendChild(li);
	}
});

function showMaps() {
	let div = document.getElementById("maps");
	fetch("/maps").then(res => res.ok ? res.json() : []).then(list => {
		div.innerHTML = "";
		for (let m of list) {
			let fig = document.createElement("figure");
			let a = document.createElement("a");
			a.href = m.url;
			let img = document.createElement("img");
			img.src = m.url + "?t=" + Date.parse(m.modified);
			a.appendChild(img);
			fig.appendChild(a);
			let cap = document.createElement("figcaption");
			cap.textContent = m.name;
			fig.appendChild(cap);
			div.appendChild(fig);
		}
	});
}
document.getElementById("refresh").addEventListener("click", showMaps);
showMaps();

let allFlags = [...document.querySelectorAll('[data-name]')];
let configInput = allFlags.filter(x => x.dataset.name == "config")[0].children[0];
configInput.addEventListener("change", e => {
	fetch("/setConfig?config=" + encodeURIComponent(configInput.value)).then(res => {
		if (res.status == 204) {
			configInput.classList.add("red-border");
			return;
		}
		res.json().then(data => {
			configInput.classList.remove("red-border");
			for (let f of allFlags) {
				if (!(f.dataset.name in data)) continue;
				let input = f.children[0];
				let v = JSON.stringify(data[f.dataset.name]).replace(/^"+|"+$/g, '');
				if (input.value != v) {
					input.value = v;
					input.classList.add("green-border");
				}
			}
		});
	});
});
</script>
</body>
</html>`

// StartWebServer serves the NcMagics commands as a web form, together
// with the maps they write.
func StartWebServer() error {
	if err := setConfig(); err != nil {
		return err
	}
	log := newLogger(Cfg.GetBool("verbose"))
	registerHandlers(http.DefaultServeMux, log, func() string {
		return os.ExpandEnv(Cfg.GetString("outdir"))
	})

	for _, cmd := range Root.Commands() {
		cmd.SilenceUsage = true
	}
	Root.SilenceUsage = true

	server := gobra.Server{
		Root:          Root,
		ServerAddress: Address,
		HTML:          template.Must(template.New("").Parse(webTemplate)),
	}
	server.MakeFlagUploadable(inputFiles...)
	log.WithField("address", Address).Info("starting web server")
	if err := open.Run("http://" + Address); err != nil {
		log.Infof("please visit http://%s", Address)
	}
	return server.Start()
}
