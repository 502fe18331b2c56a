package models

// DocumentType — тип официального документа. Значения совпадают со строками бэкенда.
type DocumentType string

const (
	DocReport       DocumentType = "Hisobot (Tahliliy)"
	DocNewsletter   DocumentType = "Axborotnoma (Newsletter)"
	DocLecture      DocumentType = "Ma'ruza (Rasmiy)"
	DocSpeech       DocumentType = "Nutq (Tantanali/Ilhomlantiruvchi)"
	DocGreeting     DocumentType = "Tabrik Matni"
	DocOrder        DocumentType = "Buyruq / Qaror loyihasi"
	DocApplication  DocumentType = "Ariza / Tushuntirish xati"
	DocStrategy     DocumentType = "Rivojlanish Strategiyasi"
	DocPressRelease DocumentType = "Matbuot xabari (Press Release)"
)

// DocumentTypes перечисляет типы документов в порядке отображения.
var DocumentTypes = []DocumentType{
	DocReport, DocNewsletter, DocLecture, DocSpeech, DocGreeting,
	DocOrder, DocApplication, DocStrategy, DocPressRelease,
}

// Sector — отрасль организации, для которой готовится документ.
type Sector string

const (
	SectorGovernment   Sector = "Davlat Boshqaruvi va Hokimiyat"
	SectorTax          Sector = "Soliq va Moliya"
	SectorEconomy      Sector = "Iqtisodiyot va Biznes"
	SectorEducation    Sector = "Ta'lim va Fan"
	SectorHealth       Sector = "Sog'liqni Saqlash"
	SectorLaw          Sector = "Huquq va Sud"
	SectorConstruction Sector = "Qurilish va Arxitektura"
	SectorIT           Sector = "Axborot Texnologiyalari"
	SectorOther        Sector = "Boshqa soha"
)

// Sectors перечисляет отрасли в порядке отображения.
var Sectors = []Sector{
	SectorGovernment, SectorTax, SectorEconomy, SectorEducation, SectorHealth,
	SectorLaw, SectorConstruction, SectorIT, SectorOther,
}

// SavedDocument — документ из истории пользователя. Content хранит HTML.
type SavedDocument struct {
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Type    DocumentType `json:"type"`
	Date    string       `json:"date"`
	Content string       `json:"content"`
}

// GroundingSource — источник, на который опирался ответ модели.
type GroundingSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Attachment — файл, прикладываемый к multipart-запросу.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Valid сообщает, известен ли тип документа.
func (t DocumentType) Valid() bool {
	for _, v := range DocumentTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Valid сообщает, известна ли отрасль.
func (s Sector) Valid() bool {
	for _, v := range Sectors {
		if v == s {
			return true
		}
	}
	return false
}
