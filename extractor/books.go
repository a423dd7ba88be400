package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/pagecrawl/models"
)

// ExtractBooks reads every product card of a book-listing page.
//
//	Name   title attribute of "h3 a"
//	Price  text of "p.price_color"
//	Rating second class of the card's first <p> ("One".."Five")
func ExtractBooks(doc *goquery.Document) []models.Record {
	var books []models.Record
	doc.Find("article.product_pod").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Find("h3 a").First().Attr("title")
		price := strings.TrimSpace(s.Find("p.price_color").First().Text())

		rating := ""
		class, _ := s.Find("p").First().Attr("class")
		if parts := strings.Fields(class); len(parts) > 1 {
			rating = parts[1]
		}

		books = append(books, models.Record{
			models.FieldName:   name,
			models.FieldPrice:  price,
			models.FieldRating: rating,
		})
	})
	return books
}
