package fb2

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// genreNames maps common FB2 genre codes to category names.
var genreNames = map[string]string{
	"sf":                 "Science Fiction",
	"sf_fantasy":         "Fantasy",
	"sf_history":         "Alternate History",
	"sf_action":          "Science Fiction",
	"sf_epic":            "Epic Fantasy",
	"sf_heroic":          "Heroic Fantasy",
	"sf_detective":       "Science Fiction",
	"sf_cyberpunk":       "Cyberpunk",
	"sf_space":           "Space Opera",
	"sf_social":          "Social Science Fiction",
	"sf_horror":          "Horror",
	"sf_humor":           "Humor",
	"sf_postapocalyptic": "Post-Apocalyptic",
	"det_classic":        "Mystery",
	"det_police":         "Police Procedural",
	"det_action":         "Thriller",
	"det_irony":          "Mystery",
	"det_history":        "Historical Mystery",
	"det_espionage":      "Espionage",
	"det_crime":          "Crime",
	"det_political":      "Thriller",
	"det_maniac":         "Thriller",
	"det_hard":           "Crime",
	"thriller":           "Thriller",
	"detective":          "Mystery",
	"prose_classic":      "Classics",
	"prose_history":      "Historical Fiction",
	"prose_contemporary": "Contemporary Fiction",
	"prose_counter":      "Counterculture",
	"prose_rus_classic":  "Russian Classics",
	"prose_su_classics":  "Soviet Classics",
	"love_contemporary":  "Romance",
	"love_history":       "Historical Romance",
	"love_detective":     "Romantic Suspense",
	"love_short":         "Romance",
	"love_erotica":       "Erotica",
	"adv_western":        "Western",
	"adv_history":        "Historical Adventure",
	"adv_indian":         "Adventure",
	"adv_maritime":       "Nautical Adventure",
	"adv_geo":            "Travel",
	"adv_animal":         "Nature",
	"adventure":          "Adventure",
	"child_tale":         "Fairy Tales",
	"child_verse":        "Children's Poetry",
	"child_prose":        "Children's Fiction",
	"child_sf":           "Children's Science Fiction",
	"child_det":          "Children's Mystery",
	"child_adv":          "Children's Adventure",
	"child_education":    "Education",
	"poetry":             "Poetry",
	"dramaturgy":         "Drama",
	"antique":            "Antiquity",
	"sci_history":        "History",
	"sci_psychology":     "Psychology",
	"sci_philosophy":     "Philosophy",
	"sci_politics":       "Politics",
	"sci_business":       "Business",
	"sci_linguistic":     "Linguistics",
	"sci_math":           "Mathematics",
	"sci_phys":           "Physics",
	"sci_chem":           "Chemistry",
	"sci_biology":        "Biology",
	"sci_tech":           "Technology",
	"comp_programming":   "Programming",
	"comp_www":           "Internet",
	"nonf_biography":     "Biography",
	"nonf_publicism":     "Essays",
	"nonf_criticism":     "Criticism",
	"religion":           "Religion",
	"humor":              "Humor",
	"home_cooking":       "Cooking",
	"reference":          "Reference",
}

// GenreName returns the category name for an FB2 genre code. Unknown codes
// are humanized: "sf_space_opera" becomes "Sf Space Opera".
func GenreName(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if name, ok := genreNames[code]; ok {
		return name
	}
	return cases.Title(language.English).String(strings.ReplaceAll(code, "_", " "))
}
