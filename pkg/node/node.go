package node

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
)

// Node types emitted by the Printful source
const (
	TypeProduct        = "PrintfulProduct"
	TypeVariant        = "PrintfulVariant"
	TypeCatalogProduct = "PrintfulCatalogProduct"
	TypeCatalogVariant = "PrintfulCatalogVariant"
	TypeCountry        = "PrintfulCountry"
	TypeStore          = "PrintfulStore"
	TypeImage          = "PrintfulImage"
)

// linkSuffix marks a field whose value is another node's id
const linkSuffix = "___NODE"

// Node is one typed, uniquely identified record in the content graph.
type Node struct {
	ID     string
	Type   string
	Parent string

	// Fields holds the record's own data
	Fields map[string]interface{}

	// Links and ListLinks hold cross references by node id
	Links     map[string]string
	ListLinks map[string][]string

	// Digest fingerprints the raw API record
	Digest string
}

// New returns an empty node of the given type
func New(id, typ string) *Node {
	return &Node{
		ID:        id,
		Type:      typ,
		Fields:    make(map[string]interface{}),
		Links:     make(map[string]string),
		ListLinks: make(map[string][]string),
	}
}

// Link sets a single reference; an empty id removes it
func (n *Node) Link(name, id string) {
	if id == "" {
		delete(n.Links, name)
		return
	}
	n.Links[name] = id
}

// LinkList sets a list reference
func (n *Node) LinkList(name string, ids []string) {
	n.ListLinks[name] = ids
}

type internal struct {
	Type          string `json:"type"`
	ContentDigest string `json:"contentDigest"`
}

// MarshalJSON flattens fields and renders references as <name>___NODE
func (n *Node) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(n.Fields)+len(n.Links)+len(n.ListLinks)+3)
	for k, v := range n.Fields {
		out[k] = v
	}
	for k, v := range n.Links {
		out[k+linkSuffix] = v
	}
	for k, v := range n.ListLinks {
		out[k+linkSuffix] = v
	}
	out["id"] = n.ID
	if n.Parent != "" {
		out["parent"] = n.Parent
	}
	out["internal"] = internal{Type: n.Type, ContentDigest: n.Digest}
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*n = *New("", "")
	for k, v := range raw {
		var err error
		switch {
		case k == "id":
			err = json.Unmarshal(v, &n.ID)
		case k == "parent":
			err = json.Unmarshal(v, &n.Parent)
		case k == "internal":
			var in internal
			err = json.Unmarshal(v, &in)
			n.Type, n.Digest = in.Type, in.ContentDigest
		case strings.HasSuffix(k, linkSuffix):
			name := strings.TrimSuffix(k, linkSuffix)
			var ids []string
			if json.Unmarshal(v, &ids) == nil {
				n.ListLinks[name] = ids
				continue
			}
			var id string
			err = json.Unmarshal(v, &id)
			n.Link(name, id)
		default:
			dec := json.NewDecoder(bytes.NewReader(v))
			dec.UseNumber()
			var field interface{}
			err = dec.Decode(&field)
			n.Fields[k] = field
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Sink accepts nodes into a store keyed by id
type Sink interface {
	CreateNode(ctx context.Context, n *Node) error
	GetNode(ctx context.Context, id string) (*Node, error)
}

// Stats counts what a run did to the store
type Stats struct {
	Created   int
	Updated   int
	Unchanged int
}

// SortByID orders nodes by type, then id
func SortByID(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Type != nodes[j].Type {
			return nodes[i].Type < nodes[j].Type
		}
		return nodes[i].ID < nodes[j].ID
	})
}
