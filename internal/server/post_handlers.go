package server

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alex-zharinov/hw05-final/internal/models"
	"github.com/alex-zharinov/hw05-final/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PostDetail renders one post with its comments.
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	detail, err := s.postService.Detail(c.UserContext(), id)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "posts/post_detail", fiber.Map{
		"title":       "Пост " + detail.Post.Summary(),
		"post":        detail.Post,
		"comments":    detail.Comments,
		"form":        newForm(nil, nil),
		"posts_count": detail.AuthorPostCount,
	})
}

// PostCreateForm renders an empty new-post form.
func (s *Server) PostCreateForm(c *fiber.Ctx) error {
	return s.renderPostForm(c, newForm(nil, nil), 0)
}

// PostCreate validates the submitted form and publishes the post.
func (s *Server) PostCreate(c *fiber.Ctx) error {
	in, err := readPostInput(c)
	if err != nil {
		return err
	}
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewUnauthorizedError("login required")
	}

	if _, err := s.postService.Create(c.UserContext(), user.ID, in); err != nil {
		if models.ErrorCode(err) == models.CodeValidation {
			return s.renderPostForm(c, newForm(postFormValues(in, ""), err), 0)
		}
		return err
	}
	return c.Redirect(profileURL(user.Username), fiber.StatusFound)
}

// PostEditForm renders the form bound to the post. Anyone but the author is sent
// back to the post page.
func (s *Server) PostEditForm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	post, err := s.postService.LoadForEdit(c.UserContext(), id, viewerID(c))
	if err != nil {
		if models.ErrorCode(err) == models.CodeForbidden {
			return c.Redirect(postURL(id), fiber.StatusFound)
		}
		return err
	}

	values := map[string]string{
		"text":  post.Text,
		"image": post.Image,
	}
	if post.GroupID != nil {
		values["group"] = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	return s.renderPostForm(c, newForm(values, nil), post.ID)
}

// PostEdit applies the submitted form to an existing post.
func (s *Server) PostEdit(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	in, err := readPostInput(c)
	if err != nil {
		return err
	}
	post, err := s.postService.Edit(c.UserContext(), id, viewerID(c), in)
	if err == nil {
		return c.Redirect(postURL(post.ID), fiber.StatusFound)
	}
	switch models.ErrorCode(err) {
	case models.CodeForbidden:
		return c.Redirect(postURL(id), fiber.StatusFound)
	case models.CodeValidation:
		return s.renderPostForm(c, newForm(postFormValues(in, post.Image), err), post.ID)
	default:
		return err
	}
}

// AddComment stores a comment and always returns to the post page.
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	_, err = s.commentService.Add(c.UserContext(), service.AddCommentInput{
		PostID:   id,
		AuthorID: viewerID(c),
		Text:     c.FormValue("text"),
	})
	if err != nil && models.ErrorCode(err) != models.CodeValidation {
		return err
	}
	return c.Redirect(postURL(id), fiber.StatusFound)
}

func (s *Server) renderPostForm(c *fiber.Ctx, form formView, postID uint) error {
	groups, err := s.postService.Groups(c.UserContext())
	if err != nil {
		return err
	}
	title := "Новый пост"
	if postID != 0 {
		title = "Редактировать пост"
	}
	return s.render(c, fiber.StatusOK, "posts/create_post", fiber.Map{
		"title":   title,
		"form":    form,
		"groups":  groups,
		"is_edit": postID != 0,
		"post_id": postID,
	})
}

func postFormValues(in service.PostInput, image string) map[string]string {
	return map[string]string{
		"text":  in.Text,
		"group": in.GroupID,
		"image": image,
	}
}

// readPostInput binds the post form, including the optional image upload.
func readPostInput(c *fiber.Ctx) (service.PostInput, error) {
	in := service.PostInput{
		Text:       c.FormValue("text"),
		GroupID:    c.FormValue("group"),
		ClearImage: c.FormValue("image-clear") != "",
	}

	fh, err := c.FormFile("image")
	if err != nil {
		// No multipart body or no file part: the image is simply absent.
		return in, nil
	}
	if fh.Filename == "" && fh.Size == 0 {
		return in, nil
	}
	f, err := fh.Open()
	if err != nil {
		return in, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return in, fmt.Errorf("read uploaded image: %w", err)
	}
	in.Image = &service.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}
	return in, nil
}
