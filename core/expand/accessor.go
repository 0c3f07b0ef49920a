package expand

import (
	"fmt"
	"strings"

	"github.com/artpar/ctrlgen/core/convention"
)

// Accessors generates the getters and setters of every field. A setter of a
// published field calls the field's mutator, so every write publishes; when the
// setter is the mutator itself nothing extra is generated.
//
// The returned infos list every accessor the client forwards, including the
// mutators of pub_setter fields.
func Accessors(d convention.Derived) (string, []AccessorInfo, error) {
	var (
		parts []string
		infos []AccessorInfo
	)
	for _, f := range d.Fields {
		data := fieldData{D: d, F: f, P: f.Publish, R: d.Receiver}

		if f.Getter != "" {
			src, err := render("getter", data)
			if err != nil {
				return "", nil, fmt.Errorf("getter of %s: %w", f.Name, err)
			}
			parts = append(parts, src)
			infos = append(infos, AccessorInfo{Kind: AccessorGetter, Name: f.Getter, Field: f.Name, Type: f.Type})
		}

		if f.Setter != "" {
			if !f.SetterIsMutator {
				name := "setter"
				if f.Publish != nil {
					name = "publishingSetter"
				}
				src, err := render(name, data)
				if err != nil {
					return "", nil, fmt.Errorf("setter of %s: %w", f.Name, err)
				}
				parts = append(parts, src)
			}
			infos = append(infos, AccessorInfo{Kind: AccessorSetter, Name: f.Setter, Field: f.Name, Type: f.Type})
		}

		if f.Publish != nil && f.Publish.PubSetter && !f.SetterIsMutator {
			infos = append(infos, AccessorInfo{Kind: AccessorMutator, Name: f.Publish.Mutator, Field: f.Name, Type: f.Type})
		}
	}
	return strings.Join(parts, "\n\n"), infos, nil
}
