package guard

import (
	"strconv"
	"strings"
)

// resourceTypes maps plural path segments to resource type names, scanned in
// order. Small and static; extend here when a new resource gains ownership
// checks.
var resourceTypes = []struct {
	segment  string
	typeName string
}{
	{"chatbots", "chatbot"},
	{"conversations", "conversation"},
	{"messages", "message"},
	{"templates", "template"},
	{"deployments", "deployment"},
	{"knowledge-bases", "knowledge_base"},
	{"sessions", "session"},
	{"alerts", "alert"},
	{"users", "user"},
}

// InferResource extracts (resource type, resource id) from a request path.
// The first segment found in the type table names the type; when the segment
// after it parses as an integer it becomes the id, otherwise id stays zero.
func InferResource(path string) (resourceType string, resourceID int64) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		for _, rt := range resourceTypes {
			if seg != rt.segment {
				continue
			}
			resourceType = rt.typeName
			if i+1 < len(segments) {
				if id, err := strconv.ParseInt(segments[i+1], 10, 64); err == nil {
					resourceID = id
				}
			}
			return resourceType, resourceID
		}
	}
	return "", 0
}
