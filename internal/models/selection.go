package models

// Mood is the emotional register posts are generated in. Values are the
// user-facing Traditional Chinese labels and travel as-is over the API.
type Mood string

const (
	MoodCynical      Mood = "厭世吐槽"
	MoodChill        Mood = "Chill 放鬆"
	MoodEmo          Mood = "深夜 Emo"
	MoodFunny        Mood = "幽默搞笑"
	MoodMotivational Mood = "正能量/雞湯"
	MoodNonsense     Mood = "純廢文"
)

// Scene is the life context posts are anchored to.
type Scene string

const (
	SceneWork         Scene = "職場社畜"
	SceneRelationship Scene = "感情生活"
	SceneDaily        Scene = "日常生活"
	SceneWeekend      Scene = "週末假期"
	SceneTrending     Scene = "時事跟風"
	SceneCampus       Scene = "校園生活"
	SceneFitness      Scene = "健身運動"
	SceneFoodie       Scene = "美食吃貨"
	SceneTravel       Scene = "旅遊出走"
	SceneBinge        Scene = "追劇動漫"
	ScenePets         Scene = "寵物日常"
	SceneFrugal       Scene = "理財省錢"
	SceneObserver     Scene = "社群觀察"
	SceneGrowth       Scene = "自我成長"
	SceneFamily       Scene = "家庭親子"
	SceneGaming       Scene = "遊戲電玩"
)

// ImageStyle selects the aesthetic of a generated visual. StyleAnimated
// routes to the video model; everything else is a single static image call.
type ImageStyle string

const (
	StyleDefault      ImageStyle = "預設氛圍"
	StyleAnimated     ImageStyle = "動態迷因 (GIF)"
	StyleJapanese     ImageStyle = "日系空氣感"
	StyleKorean       ImageStyle = "韓系奶油"
	StyleRealistic    ImageStyle = "超寫實攝影"
	StyleIllustration ImageStyle = "溫馨插畫"
	StyleCyberpunk    ImageStyle = "賽博龐克"
	StyleVintage      ImageStyle = "復古底片"
)

// ModelVersion picks the text model used for generation.
type ModelVersion string

const (
	ModelFlash     ModelVersion = "gemini-2.5-flash"
	ModelFlashLite ModelVersion = "gemini-2.5-flash-lite"
	ModelPro       ModelVersion = "gemini-2.5-pro"
)

// MaxKeywords caps the user-selected keyword set.
const MaxKeywords = 5

// Selection is the generation control state of one session. It is replaced
// wholesale on user input; keyword invariants are enforced by the store.
type Selection struct {
	Mood         Mood         `json:"mood"`
	Scene        Scene        `json:"scene"`
	ModelVersion ModelVersion `json:"modelVersion"`
	Keywords     []string     `json:"keywords"`
	SearchQuery  string       `json:"searchQuery"`
}

var moods = map[Mood]bool{
	MoodCynical: true, MoodChill: true, MoodEmo: true,
	MoodFunny: true, MoodMotivational: true, MoodNonsense: true,
}

var scenes = map[Scene]bool{
	SceneWork: true, SceneRelationship: true, SceneDaily: true,
	SceneWeekend: true, SceneTrending: true, SceneCampus: true,
	SceneFitness: true, SceneFoodie: true, SceneTravel: true,
	SceneBinge: true, ScenePets: true, SceneFrugal: true,
	SceneObserver: true, SceneGrowth: true, SceneFamily: true,
	SceneGaming: true,
}

var styles = map[ImageStyle]bool{
	StyleDefault: true, StyleAnimated: true, StyleJapanese: true,
	StyleKorean: true, StyleRealistic: true, StyleIllustration: true,
	StyleCyberpunk: true, StyleVintage: true,
}

var modelVersions = map[ModelVersion]bool{
	ModelFlash: true, ModelFlashLite: true, ModelPro: true,
}

func (m Mood) Valid() bool         { return moods[m] }
func (s Scene) Valid() bool        { return scenes[s] }
func (s ImageStyle) Valid() bool   { return styles[s] }
func (m ModelVersion) Valid() bool { return modelVersions[m] }

// DefaultSelection is the state a fresh session starts in.
func DefaultSelection() Selection {
	return Selection{
		Mood:         MoodCynical,
		Scene:        SceneWork,
		ModelVersion: ModelFlash,
	}
}

// styleModifiers maps every explicit style to its fixed aesthetic directive.
// The lookup is total: unknown values fall back to defaultStyleModifier.
var styleModifiers = map[ImageStyle]string{
	StyleJapanese:     "風格：日系攝影，自然光，過曝高光，青藍色調，低對比，清新空氣感，膠片質感。",
	StyleKorean:       "風格：韓系IG質感，低飽和度，米色/奶油色調，乾淨簡約，柔光，極簡構圖。",
	StyleRealistic:    "風格：高畫質寫實攝影，4K解析度，銳利清晰，光影細節豐富，專業商業攝影般的真實感。",
	StyleIllustration: "風格：溫馨手繪插畫，柔和線條，水彩或色鉛筆質感，療癒系，色彩粉嫩，非寫實。",
	StyleCyberpunk:    "風格：賽博龐克，霓虹燈光，藍紫色與洋紅色系，高科技低生活，未來感，夜晚城市，強烈對比。",
	StyleVintage:      "風格：90年代復古底片，顆粒感，漏光效果，暖黃色調，懷舊氛圍，Lomo風格。",
}

// moodModifiers drives the aesthetic when the style is StyleDefault.
var moodModifiers = map[Mood]string{
	MoodCynical:      "風格：低飽和度、冷色調、黑白攝影或青藍色濾鏡、高對比、孤寂感、陰影強烈、底片顆粒感。",
	MoodChill:        "風格：柔和自然光、暖色調、低對比、日系空氣感、咖啡廳或戶外的愜意氛圍、莫蘭迪色系。",
	MoodEmo:          "風格：暗色調、藍紫色系、霓虹燈光、模糊失焦、雨天或夜晚窗景、王家衛電影風格、孤獨感。",
	MoodFunny:        "風格：高飽和度、鮮豔色彩、迷因風格、誇張構圖、像漫畫或普普藝術、清晰明亮。",
	MoodMotivational: "風格：明亮採光、黃金時刻、清新簡約、充滿希望的感覺、由下往上的視角、乾淨的背景。",
	MoodNonsense:     "風格：隨手拍質感、低畫質復古感、生活碎片、不經意的構圖、真實不做作。",
}

const defaultStyleModifier = "風格：台灣日常質感、生活化、真實感。"

// StyleModifier resolves the aesthetic directive for a visual request. An
// explicit non-default style wins; otherwise the mood decides. Both lookups
// fall back to the default modifier, so the mapping is total.
func StyleModifier(style ImageStyle, mood Mood) string {
	if style != "" && style != StyleDefault && style != StyleAnimated {
		if m, ok := styleModifiers[style]; ok {
			return m
		}
		return defaultStyleModifier
	}
	if m, ok := moodModifiers[mood]; ok {
		return m
	}
	return defaultStyleModifier
}
