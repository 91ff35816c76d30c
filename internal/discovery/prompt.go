package discovery

import "fmt"

const systemPrompt = "You are a discount code search expert. You find valid, active discount codes from multiple sources across the web."

func userPrompt(query string) string {
	return fmt.Sprintf(`You are a discount code finder assistant. Search for valid, active discount codes for: %q.

Your task:
1. Find discount codes from multiple sources (coupon websites, official merchant sites, promotional pages)
2. Extract the following information for each code:
   - Code: The actual discount code
   - Merchant Name: The company/website offering the discount
   - Merchant URL: The website where the code can be used
   - Description: What the discount is for
   - Discount Amount: The discount percentage or amount (e.g., "20%% off", "$10 off")
   - Expiry Date: When the code expires (if available)
   - Source: Where you found this code

Return a JSON object with a "codes" array. Each element has these fields:
{
  "code": "string",
  "merchantName": "string",
  "merchantUrl": "string",
  "description": "string",
  "discountAmount": "string",
  "expiryDate": "YYYY-MM-DD or null",
  "source": "string"
}

Find at least 3-5 different codes from various sources. Focus on recent, active codes.`, query)
}

// codesSchema is the exact shape every response must validate against.
func codesSchema() *Schema {
	str := func() *Schema { return &Schema{Type: TypeString} }
	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"codes": {
				Type: TypeArray,
				Items: &Schema{
					Type: TypeObject,
					Properties: map[string]*Schema{
						"code":           str(),
						"merchantName":   str(),
						"merchantUrl":    str(),
						"description":    str(),
						"discountAmount": str(),
						"expiryDate":     {Type: TypeString, Nullable: true},
						"source":         str(),
					},
					Required: []string{"code", "merchantName", "merchantUrl", "description", "discountAmount", "source"},
				},
			},
		},
		Required: []string{"codes"},
	}
}
