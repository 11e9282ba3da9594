package convert

import (
	"slices"
	"strings"

	"github.com/irbuch/swagger2-to-postman/internal/postman"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FolderName returns the folder an API path belongs to: its first non-empty
// segment. The root path has none.
func FolderName(path string) (string, bool) {
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			return seg, true
		}
	}
	return "", false
}

// Assembler groups request items into folders by path.
type Assembler struct {
	log     zerolog.Logger
	loose   []*postman.Item
	folders []*postman.Item
	byName  map[string]*postman.Item
}

func NewAssembler(log zerolog.Logger) *Assembler {
	return &Assembler{log: log, byName: map[string]*postman.Item{}}
}

// Add files the items of one path, keeping their order.
func (a *Assembler) Add(path string, items []*postman.Item) {
	if len(items) == 0 {
		return
	}
	name, ok := FolderName(path)
	if !ok {
		a.loose = append(a.loose, items...)
		return
	}
	folder, exists := a.byName[name]
	if !exists {
		folder = &postman.Item{Name: name, Description: "Folder for " + name}
		a.byName[name] = folder
		a.folders = append(a.folders, folder)
	}
	a.log.Debug().Str("folder", name).Str("path", path).Int("items", len(items)).Msg("adding items to folder")
	folder.Item = append(folder.Item, items...)
}

// Items returns the top level: loose items then folders, stably sorted by
// case-insensitive name. Folder contents keep their insertion order.
func (a *Assembler) Items() []*postman.Item {
	top := make([]*postman.Item, 0, len(a.loose)+len(a.folders))
	top = append(top, a.loose...)
	top = append(top, a.folders...)

	upper := cases.Upper(language.Und)
	keys := make(map[*postman.Item]string, len(top))
	for _, it := range top {
		keys[it] = upper.String(it.Name)
	}
	slices.SortStableFunc(top, func(x, y *postman.Item) int {
		return strings.Compare(keys[x], keys[y])
	})
	return top
}
