package extraction

// Prompt is the fixed instruction sent with every menu image
const Prompt = `Analyze the image of this restaurant menu. Extract the restaurant name, the categories (for example Starters, Main Courses, Desserts, Drinks) and, for each category, the list of dishes with their name, a short description when one is available, and their price.

Structure the output STRICTLY as the following JSON:
{
  "restaurantName": "string (restaurant name)",
  "categories": [
    {
      "categoryName": "string (category name, e.g. Starters)",
      "items": [
        {
          "name": "string (dish name)",
          "description": "string (dish description, MUST be an empty string \"\" when not available, NOT null and NOT absent)",
          "price": "string (dish price, e.g. €12.50 or 15$)"
        }
      ]
    }
  ]
}

Make sure description is an empty string ("") when it is not explicitly printed on the menu.
Return NO explanatory text, NO comments and NO markdown (such as ` + "```json" + `) outside of the JSON object itself. The response must be ONLY the valid JSON object.`
