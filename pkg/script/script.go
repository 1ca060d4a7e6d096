// Package script renders the browser-console deletion script for a list of
// selected post identifiers. The identifiers are the only data crossing this
// boundary; credentials are captured client-side from the session's own
// outgoing requests.
package script

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// defaultEndpoint is the deletion endpoint baked into the script. The script
// overrides it at runtime if it observes the client using a newer one.
const defaultEndpoint = "https://x.com/i/api/graphql/VaenaVgh5q5ih7kvyVjgtg/DeleteTweet"

var tmpl = template.Must(template.New("delete").Parse(deleteScript))

type params struct {
	Endpoint string
	IDs      string
}

// Generate renders the deletion script over the given identifiers.
func Generate(ids []string) (string, error) {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, params{
		Endpoint: defaultEndpoint,
		IDs:      strings.Join(quoted, ", "),
	})
	if err != nil {
		return "", fmt.Errorf("render delete script: %w", err)
	}
	return buf.String(), nil
}

const deleteScript = `var TweetDeleter = {
  deleteURL: "{{.Endpoint}}",
  lastHeaders: {},
  tIds: [{{.IDs}}],
  dCount: 0,

  init: function() {
    this.initXHR();
    this.confirmDeletion();
  },

  initXHR: function() {
    var XHR_OpenOriginal = XMLHttpRequest.prototype.open;
    XMLHttpRequest.prototype.open = function () {
      if (arguments[1] && arguments[1].includes("DeleteTweet")) {
        TweetDeleter.deleteURL = arguments[1];
      }
      XHR_OpenOriginal.apply(this, arguments);
    };

    var XHR_SetRequestHeaderOriginal = XMLHttpRequest.prototype.setRequestHeader;
    XMLHttpRequest.prototype.setRequestHeader = function (a, b) {
      TweetDeleter.lastHeaders[a] = b;
      XHR_SetRequestHeaderOriginal.apply(this, arguments);
    };
  },

  confirmDeletion: async function() {
    if (confirm("Are you sure you want to delete " + this.tIds.length + " tweets?")) {
      this.deleteTweets();
    }
  },

  deleteTweets: async function() {
    while (!("authorization" in this.lastHeaders)) {
      await this.sleep(1000);
      console.log("Waiting for authorization...");
    }

    console.log("Starting deletion...");

    while (this.tIds.length > 0) {
      this.tId = this.tIds.pop();
      try {
        let response = await fetch(this.deleteURL, {
          headers: {
            accept: "*/*",
            "accept-language": "en-US,en;q=0.5",
            authorization: this.lastHeaders.authorization,
            "content-type": "application/json",
            "sec-fetch-dest": "empty",
            "sec-fetch-mode": "cors",
            "sec-fetch-site": "same-origin",
            "x-client-transaction-id": this.lastHeaders["X-Client-Transaction-Id"],
            "x-client-uuid": this.lastHeaders["x-client-uuid"],
            "x-csrf-token": this.lastHeaders["x-csrf-token"],
            "x-twitter-active-user": "yes",
            "x-twitter-auth-type": "OAuth2Session",
            "x-twitter-client-language": "en",
          },
          referrer: "https://x.com/" + document.location.href.split("/")[3] + "/with_replies",
          referrerPolicy: "strict-origin-when-cross-origin",
          body: '{"variables":{"tweet_id":"' + this.tId + '","dark_request":false},"queryId":"' + this.deleteURL.split("/")[6] + '"}',
          method: "POST",
          mode: "cors",
          credentials: "include",
        });

        if (response.status == 200) {
          this.dCount++;
          console.log("Deleted tweet ID: " + this.tId);
        } else {
          console.log("Failed to delete tweet ID: " + this.tId, response);
        }
      } catch (error) {
        console.log("Error deleting tweet ID: " + this.tId, error);
      }
    }

    console.log("Tweet deletion complete!");
    alert("Tweet deletion complete!");
  },

  sleep: function(ms) {
    return new Promise(function(resolve) {
      setTimeout(resolve, ms);
    });
  },
};

TweetDeleter.init();
`
