package server

import (
	"fmt"
	"net/http"
)

// handleTrackerJS serves the embeddable labrat tracker script
func (s *Server) handleTrackerJS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	serverURL := fmt.Sprintf("%s://%s", scheme, r.Host)

	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.Write([]byte(GenerateTrackerScript(serverURL)))
}

// GenerateTrackerScript generates the lr.js tracker bound to the given
// server URL. The script keeps a stable visitor id in localStorage,
// buckets the visitor uniformly into a variant on first sight, and sends
// assignment/conversion beacons.
func GenerateTrackerScript(serverURL string) string {
	return fmt.Sprintf(`(function(){
  var S='%s';

  // Stable visitor ID
  var uid=localStorage.getItem('lr_uid');
  if(!uid){
    uid=crypto.randomUUID();
    localStorage.setItem('lr_uid',uid);
  }

  function beacon(body){
    navigator.sendBeacon(S+'/b',JSON.stringify(body));
  }

  function assign(id,cb){
    var key='lr_v_'+id;
    var v=localStorage.getItem(key);
    if(v!==null){cb(v);return;}
    fetch(S+'/api/experiments/'+encodeURIComponent(id))
      .then(function(r){return r.json();})
      .then(function(exp){
        if(exp.status!=='running'||!exp.variants||!exp.variants.length)return;
        var picked=exp.variants[Math.floor(Math.random()*exp.variants.length)];
        localStorage.setItem(key,picked);
        beacon({e:id,u:uid,v:picked,t:'a'});
        cb(picked);
      })
      .catch(function(){});
  }

  window.labrat={
    // labrat.experiment('checkout-cta', function(variant){ ... })
    experiment:function(id,cb){assign(id,cb||function(){});},
    // labrat.convert('checkout-cta', {plan:'pro'})
    convert:function(id,props){
      beacon({e:id,u:uid,t:'c',p:props||{}});
    }
  };
})();`, serverURL)
}
